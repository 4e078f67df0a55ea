package port

import (
	"context"

	"github.com/guillermoBallester/querylens/internal/core/domain"
)

// ReportSink receives report output as the driver produces it.
type ReportSink interface {
	WriteCase(ctx context.Context, outcome domain.CaseOutcome) error
	WriteIndexes(ctx context.Context, indexes []domain.IndexDescriptor) error
	// Flush is called once after the last write, including after a fatal error.
	Flush() error
}
