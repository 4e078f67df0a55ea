package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/querylens/internal/core/domain"
	"github.com/guillermoBallester/querylens/internal/core/port"
)

// ReportService runs a fixed batch of diagnostic cases one at a time and then
// lists the database indexes.
type ReportService struct {
	profiler  *QueryProfiler
	inspector *IndexInspector
	cases     []domain.DiagnosticCase
	logger    *slog.Logger
}

func NewReportService(profiler *QueryProfiler, inspector *IndexInspector, cases []domain.DiagnosticCase, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		profiler:  profiler,
		inspector: inspector,
		cases:     cases,
		logger:    logger,
	}
}

// Cases returns the configured batch.
func (s *ReportService) Cases() []domain.DiagnosticCase {
	return s.cases
}

// Run streams every case outcome and then the index list to sink. A failing case
// is written as an error outcome and does not stop the batch; an index listing or
// sink failure is returned.
func (s *ReportService) Run(ctx context.Context, sink port.ReportSink) (err error) {
	defer func() {
		if ferr := sink.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("flushing report: %w", ferr)
		}
	}()

	for _, c := range s.cases {
		// Cases run strictly one after another.
		outcome := s.runCase(ctx, c)
		if err := sink.WriteCase(ctx, outcome); err != nil {
			return fmt.Errorf("writing case %q: %w", c.Name, err)
		}
	}

	indexes, err := s.inspector.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("listing indexes: %w", err)
	}
	if err := sink.WriteIndexes(ctx, indexes); err != nil {
		return fmt.Errorf("writing indexes: %w", err)
	}

	s.logger.InfoContext(ctx, "report complete",
		slog.Int("cases", len(s.cases)),
		slog.Int("indexes", len(indexes)),
	)
	return nil
}

// Collect runs the report into memory.
func (s *ReportService) Collect(ctx context.Context) (*domain.Report, error) {
	c := &collector{}
	if err := s.Run(ctx, c); err != nil {
		return &c.report, err
	}
	return &c.report, nil
}

func (s *ReportService) runCase(ctx context.Context, c domain.DiagnosticCase) domain.CaseOutcome {
	outcome := domain.CaseOutcome{Name: c.Name, SQL: c.SQL}

	result, err := s.profiler.Profile(ctx, c.Request())
	if err != nil {
		s.logger.WarnContext(ctx, "diagnostic case failed",
			slog.String("case", c.Name),
			slog.String("error.message", err.Error()),
		)
		outcome.Err = err.Error()
		return outcome
	}

	outcome.Result = result
	return outcome
}

// collector is an in-memory ReportSink.
type collector struct {
	report domain.Report
}

func (c *collector) WriteCase(_ context.Context, outcome domain.CaseOutcome) error {
	c.report.Cases = append(c.report.Cases, outcome)
	return nil
}

func (c *collector) WriteIndexes(_ context.Context, indexes []domain.IndexDescriptor) error {
	c.report.Indexes = indexes
	return nil
}

func (c *collector) Flush() error { return nil }
