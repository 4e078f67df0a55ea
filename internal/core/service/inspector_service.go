package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/querylens/internal/core/domain"
	"github.com/guillermoBallester/querylens/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// IndexInspector lists the user-defined indexes recorded in the system catalog.
type IndexInspector struct {
	pool    port.ConnPool
	dialect domain.Dialect
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewIndexInspector(pool port.ConnPool, dialect domain.Dialect, logger *slog.Logger, tracer trace.Tracer) *IndexInspector {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexInspector{pool: pool, dialect: dialect, logger: logger, tracer: tracer}
}

// ListIndexes returns indexes in catalog order, without engine-internal ones.
func (s *IndexInspector) ListIndexes(ctx context.Context) ([]domain.IndexDescriptor, error) {
	ctx, span := s.tracer.Start(ctx, "IndexInspector.ListIndexes",
		trace.WithAttributes(
			attribute.String("db.system", s.dialect.Name),
			attribute.String("db.operation.name", "list_indexes"),
		),
	)
	defer span.End()

	rows, err := s.readCatalog(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "index catalog query failed",
			slog.String("error.type", errorType(err)),
			slog.String("error.message", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	indexes := make([]domain.IndexDescriptor, 0, len(rows))
	for _, row := range rows {
		name := stringValue(row["name"])
		if s.dialect.IsInternalIndex(name) {
			continue
		}
		indexes = append(indexes, domain.IndexDescriptor{
			Name:       name,
			TableName:  stringValue(row["table_name"]),
			Definition: stringValue(row["definition"]),
		})
	}

	span.SetAttributes(attribute.Int("querylens.index_count", len(indexes)))
	return indexes, nil
}

func (s *IndexInspector) readCatalog(ctx context.Context) ([]map[string]any, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAcquisition, err)
	}
	defer s.pool.Release(conn)

	rows, err := conn.Query(ctx, s.dialect.IndexCatalogQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalog, err)
	}
	return rows, nil
}
