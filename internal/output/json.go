package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/guillermoBallester/querylens/internal/core/domain"
	"github.com/guillermoBallester/querylens/internal/core/port"
)

func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// JSONSink buffers the report and encodes it as a single document on Flush.
type JSONSink struct {
	w      io.Writer
	report domain.Report
}

var _ port.ReportSink = (*JSONSink)(nil)

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w, report: domain.Report{
		Cases:   []domain.CaseOutcome{},
		Indexes: []domain.IndexDescriptor{},
	}}
}

func (s *JSONSink) WriteCase(_ context.Context, outcome domain.CaseOutcome) error {
	s.report.Cases = append(s.report.Cases, outcome)
	return nil
}

func (s *JSONSink) WriteIndexes(_ context.Context, indexes []domain.IndexDescriptor) error {
	s.report.Indexes = append(s.report.Indexes, indexes...)
	return nil
}

// Flush writes whatever was collected, so a failed run still emits its cases.
func (s *JSONSink) Flush() error {
	return RenderJSON(s.w, s.report)
}
