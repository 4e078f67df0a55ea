package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/guillermoBallester/querylens/internal/adapter/postgres"
	"github.com/guillermoBallester/querylens/internal/adapter/sqlite"
	"github.com/guillermoBallester/querylens/internal/audit"
	"github.com/guillermoBallester/querylens/internal/config"
	"github.com/guillermoBallester/querylens/internal/core/domain"
	"github.com/guillermoBallester/querylens/internal/core/port"
	"github.com/guillermoBallester/querylens/internal/core/service"
	"github.com/guillermoBallester/querylens/internal/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

type pool interface {
	port.ConnPool
	Close() error
}

// app owns every long-lived dependency of one CLI invocation.
type app struct {
	logger    *slog.Logger
	pool      pool
	auditor   port.QueryAuditor
	otel      *telemetry.Provider
	tracer    trace.Tracer
	inst      port.Instrumentation
	profiler  *service.QueryProfiler
	inspector *service.IndexInspector
	report    *service.ReportService
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (_ *app, err error) {
	// Logs go to stderr; stdout carries the report or the MCP transport.
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	a := &app{logger: logger, auditor: audit.NoopAuditor{}}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	cases, threshold, err := cfg.ResolveCases()
	if err != nil {
		return nil, errors.Wrap(err, "loading cases")
	}

	if cfg.OTelEnabled {
		a.otel, err = telemetry.Init(ctx, "querylens", version)
		if err != nil {
			return nil, errors.Wrap(err, "initializing telemetry")
		}
	}
	// A nil provider hands out noop tracers and instruments.
	a.tracer, a.inst = a.otel.Tracer(), a.otel.Instruments()

	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		a.auditor = fa
	}

	p, dialect, err := openPool(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}
	a.pool = p

	logger.Info("starting querylens",
		slog.String("version", version),
		slog.String("db.system", dialect.Name),
		slog.Int64("slow_threshold_ms", threshold),
		slog.Int("cases", len(cases)),
		slog.Bool("read_only_guard", cfg.ReadOnlyGuard),
	)

	a.profiler = service.NewQueryProfiler(a.pool, dialect,
		service.ProfilerConfig{ThresholdMS: threshold, ReadOnlyGuard: cfg.ReadOnlyGuard},
		a.auditor, logger, a.tracer, a.inst)
	a.inspector = service.NewIndexInspector(a.pool, dialect, logger, a.tracer)
	a.report = service.NewReportService(a.profiler, a.inspector, cases, logger)

	return a, nil
}

func openPool(ctx context.Context, cfg *config.Config) (pool, domain.Dialect, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		p, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxConns:        cfg.PoolMaxConns,
			MinConns:        cfg.PoolMinConns,
			MaxConnLifetime: cfg.PoolMaxConnLifetime,
		})
		if err != nil {
			return nil, domain.Dialect{}, err
		}
		return p, domain.Postgres, nil
	default:
		p, err := sqlite.Open(ctx, cfg.DatabaseURL, sqlite.PoolConfig{
			MaxConns:        cfg.PoolMaxConns,
			MinConns:        cfg.PoolMinConns,
			MaxConnLifetime: cfg.PoolMaxConnLifetime,
		})
		if err != nil {
			return nil, domain.Dialect{}, err
		}
		return p, domain.SQLite, nil
	}
}

// Close releases everything newApp acquired, in reverse order.
func (a *app) Close() error {
	var errs []error
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.auditor.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.otel.Shutdown(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
