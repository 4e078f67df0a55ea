package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/querylens/internal/core/domain"
	"github.com/guillermoBallester/querylens/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ProfilerConfig tunes a QueryProfiler.
type ProfilerConfig struct {
	// ThresholdMS below 1 selects domain.DefaultSlowQueryThresholdMS.
	ThresholdMS int64
	// ReadOnlyGuard refuses statements the classifier identifies as mutating.
	ReadOnlyGuard bool
}

// QueryProfiler runs a statement's explain form and then the statement itself on
// one scoped connection, timing the real execution.
type QueryProfiler struct {
	pool        port.ConnPool
	dialect     domain.Dialect
	recommender domain.Recommender
	classifier  *domain.StatementClassifier
	guard       bool
	auditor     port.QueryAuditor
	logger      *slog.Logger
	tracer      trace.Tracer
	inst        port.Instrumentation
}

func NewQueryProfiler(pool port.ConnPool, dialect domain.Dialect, cfg ProfilerConfig, auditor port.QueryAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *QueryProfiler {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ThresholdMS <= 0 {
		cfg.ThresholdMS = domain.DefaultSlowQueryThresholdMS
	}
	return &QueryProfiler{
		pool:        pool,
		dialect:     dialect,
		recommender: domain.NewRecommender(dialect, cfg.ThresholdMS),
		classifier:  domain.NewStatementClassifier(),
		guard:       cfg.ReadOnlyGuard,
		auditor:     auditor,
		logger:      logger,
		tracer:      tracer,
		inst:        inst,
	}
}

// ThresholdMS returns the slow-query threshold in use.
func (p *QueryProfiler) ThresholdMS() int64 {
	return p.recommender.ThresholdMS
}

// Profile captures the plan, duration and recommendations for req.
func (p *QueryProfiler) Profile(ctx context.Context, req domain.QueryRequest) (*domain.ProfileResult, error) {
	ctx, span := p.tracer.Start(ctx, "QueryProfiler.Profile",
		trace.WithAttributes(
			attribute.String("db.system", p.dialect.Name),
			attribute.String("db.operation.name", "profile"),
			attribute.String("db.statement", req.SQL),
		),
	)
	defer span.End()

	readOnly, known := p.classify(ctx, req.SQL)
	if known && !readOnly {
		if p.guard {
			err := fmt.Errorf("%w: %w", domain.ErrExecution, domain.ErrMutatingStatement)
			p.fail(ctx, span, req, 0, err)
			return nil, err
		}
		p.logger.WarnContext(ctx, "profiling a mutating statement; it executes for real",
			slog.String("db.statement", req.SQL),
		)
	}

	plan, rowCount, durationMS, err := p.measure(ctx, req)
	if err != nil {
		p.fail(ctx, span, req, durationMS, err)
		return nil, err
	}

	result := &domain.ProfileResult{
		SQL:             req.SQL,
		DurationMS:      durationMS,
		Slow:            domain.IsSlow(durationMS, p.recommender.ThresholdMS),
		Plan:            plan,
		Recommendations: p.recommender.Recommend(plan, durationMS),
		RowCount:        rowCount,
		ReadOnly:        known && readOnly,
	}

	p.inst.RecordProfileDuration(ctx, float64(durationMS))
	p.inst.IncrementProfileCount(ctx)
	if result.Slow {
		p.inst.IncrementSlowQueries(ctx)
	}
	p.record(ctx, port.AuditEntry{
		Operation:  "profile",
		SQL:        req.SQL,
		DurationMS: durationMS,
		Slow:       result.Slow,
		RowCount:   rowCount,
	})

	span.SetAttributes(
		attribute.Int64("querylens.duration_ms", durationMS),
		attribute.Bool("querylens.slow", result.Slow),
		attribute.Int("db.response.rows", rowCount),
	)
	p.logger.DebugContext(ctx, "query profiled",
		slog.String("db.statement", req.SQL),
		slog.Int64("duration_ms", durationMS),
		slog.Bool("slow", result.Slow),
		slog.Int("plan_steps", len(plan)),
	)

	return result, nil
}

// measure holds one connection for the explain form and the timed execution.
// The connection is released on every return path.
func (p *QueryProfiler) measure(ctx context.Context, req domain.QueryRequest) ([]domain.PlanStep, int, int64, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %w", domain.ErrAcquisition, err)
	}
	defer p.pool.Release(conn)

	planRows, err := conn.Query(ctx, p.dialect.ExplainSQL(req.SQL), req.Params...)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: explaining: %w", domain.ErrExecution, err)
	}
	plan := planSteps(planRows, p.dialect.DetailColumn)

	start := time.Now()
	rows, err := conn.Query(ctx, req.SQL, req.Params...)
	durationMS := time.Since(start).Milliseconds()
	if err != nil {
		return plan, 0, durationMS, fmt.Errorf("%w: %w", domain.ErrExecution, err)
	}

	return plan, len(rows), durationMS, nil
}

// classify returns known=false when the parser cannot read the statement, which
// happens for engine-specific syntax.
func (p *QueryProfiler) classify(ctx context.Context, sql string) (readOnly, known bool) {
	readOnly, err := p.classifier.IsReadOnly(sql)
	if err != nil {
		p.logger.DebugContext(ctx, "statement not classified",
			slog.String("db.statement", sql),
			slog.String("error.message", err.Error()),
		)
		return false, false
	}
	return readOnly, true
}

func (p *QueryProfiler) fail(ctx context.Context, span trace.Span, req domain.QueryRequest, durationMS int64, err error) {
	p.logger.WarnContext(ctx, "query profiling failed",
		slog.String("db.operation.name", "profile"),
		slog.String("db.statement", req.SQL),
		slog.String("error.type", errorType(err)),
		slog.String("error.message", err.Error()),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.inst.IncrementProfileErrors(ctx)
	p.record(ctx, port.AuditEntry{
		Operation:  "profile",
		SQL:        req.SQL,
		DurationMS: durationMS,
		Err:        err,
	})
}

func (p *QueryProfiler) record(ctx context.Context, entry port.AuditEntry) {
	if p.auditor != nil {
		p.auditor.Record(ctx, entry)
	}
}

func planSteps(rows []map[string]any, detailColumn string) []domain.PlanStep {
	steps := make([]domain.PlanStep, 0, len(rows))
	for _, row := range rows {
		steps = append(steps, domain.PlanStep{
			Detail: stringValue(row[detailColumn]),
			Fields: row,
		})
	}
	return steps
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrAcquisition):
		return "acquisition_error"
	case errors.Is(err, domain.ErrCatalog):
		return "catalog_error"
	case errors.Is(err, domain.ErrExecution):
		return "execution_error"
	default:
		return "error"
	}
}
