package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/guillermoBallester/querylens/internal/core/domain"
	"github.com/guillermoBallester/querylens/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const userLookup = "SELECT id, email FROM users WHERE email = ?"

type capturingAuditor struct {
	entries []port.AuditEntry
}

func (a *capturingAuditor) Record(_ context.Context, e port.AuditEntry) {
	a.entries = append(a.entries, e)
}

func (a *capturingAuditor) Close() error { return nil }

func newProfiler(pool port.ConnPool, auditor port.QueryAuditor) *QueryProfiler {
	return NewQueryProfiler(pool, domain.SQLite, ProfilerConfig{}, auditor, testLogger(), nil, nil)
}

func TestProfile_Success(t *testing.T) {
	pool := newFakePool().
		on("EXPLAIN QUERY PLAN", fakeResponse{rows: []map[string]any{
			{"id": int64(2), "parent": int64(0), "notused": int64(0), "detail": "SCAN users"},
		}}).
		on("SELECT", fakeResponse{rows: []map[string]any{{"id": int64(1), "email": "a@example.com"}}})
	auditor := &capturingAuditor{}
	p := newProfiler(pool, auditor)

	result, err := p.Profile(context.Background(), domain.QueryRequest{SQL: userLookup, Params: []any{"a@example.com"}})
	require.NoError(t, err)

	assert.Equal(t, userLookup, result.SQL)
	assert.GreaterOrEqual(t, result.DurationMS, int64(0))
	assert.Equal(t, result.DurationMS > 100, result.Slow)
	require.Len(t, result.Plan, 1)
	assert.Equal(t, "SCAN users", result.Plan[0].Detail)
	assert.Equal(t, int64(2), result.Plan[0].Fields["id"])
	assert.Contains(t, result.Recommendations, domain.AdviceTableScan)
	assert.Equal(t, 1, result.RowCount)
	assert.True(t, result.ReadOnly)

	assert.Equal(t, 1, pool.acquired)
	assert.Equal(t, 1, pool.released)
	assert.Equal(t, []string{"EXPLAIN QUERY PLAN " + userLookup, userLookup}, pool.queries)
	for _, args := range pool.lastArgs {
		assert.Equal(t, []any{"a@example.com"}, args, "explain and execution share params")
	}

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, "profile", auditor.entries[0].Operation)
	assert.NoError(t, auditor.entries[0].Err)
}

func TestProfile_ReleasesWhenExecutionFails(t *testing.T) {
	pool := newFakePool().
		on("EXPLAIN QUERY PLAN", fakeResponse{rows: []map[string]any{{"detail": "SCAN users"}}}).
		on("SELECT", fakeResponse{err: fmt.Errorf("no such column: emial")})
	auditor := &capturingAuditor{}
	p := newProfiler(pool, auditor)

	_, err := p.Profile(context.Background(), domain.QueryRequest{SQL: userLookup})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExecution)
	assert.Contains(t, err.Error(), "no such column")

	assert.Equal(t, pool.acquired, pool.released)
	assert.Equal(t, 1, pool.released)

	require.Len(t, auditor.entries, 1)
	assert.Error(t, auditor.entries[0].Err)
}

func TestProfile_ReleasesWhenExplainFails(t *testing.T) {
	pool := newFakePool().
		on("EXPLAIN QUERY PLAN", fakeResponse{err: fmt.Errorf("near \"FORM\": syntax error")})
	p := newProfiler(pool, nil)

	_, err := p.Profile(context.Background(), domain.QueryRequest{SQL: "SELECT * FORM users"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExecution)
	assert.Equal(t, 1, pool.acquired)
	assert.Equal(t, 1, pool.released)
	assert.Len(t, pool.queries, 1, "real execution must not run after a failed explain")
}

func TestProfile_ReleasesOnPanic(t *testing.T) {
	pool := newFakePool().
		on("EXPLAIN QUERY PLAN", fakeResponse{rows: []map[string]any{{"detail": "SCAN users"}}}).
		on("SELECT", fakeResponse{panic: "driver exploded"})
	p := newProfiler(pool, nil)

	assert.Panics(t, func() {
		_, _ = p.Profile(context.Background(), domain.QueryRequest{SQL: userLookup})
	})
	assert.Equal(t, 1, pool.acquired)
	assert.Equal(t, 1, pool.released)
}

func TestProfile_AcquisitionFailureOwesNoRelease(t *testing.T) {
	pool := newFakePool()
	pool.acquireErr = errors.New("pool closed")
	p := newProfiler(pool, nil)

	_, err := p.Profile(context.Background(), domain.QueryRequest{SQL: userLookup})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAcquisition)
	assert.NotErrorIs(t, err, domain.ErrExecution)
	assert.Equal(t, 0, pool.acquired)
	assert.Equal(t, 0, pool.released)
}

func TestProfile_IndexedLookupLooksOptimized(t *testing.T) {
	pool := newFakePool().
		on("EXPLAIN QUERY PLAN", fakeResponse{rows: []map[string]any{
			{"detail": "SEARCH users USING INDEX idx_users_email (email=?)"},
		}})
	p := newProfiler(pool, nil)

	result, err := p.Profile(context.Background(), domain.QueryRequest{SQL: userLookup})
	require.NoError(t, err)
	if !result.Slow {
		assert.Equal(t, []string{domain.AdviceOptimized}, result.Recommendations)
	}
}

func TestProfile_MutatingStatementRunsWithoutGuard(t *testing.T) {
	pool := newFakePool()
	p := newProfiler(pool, nil)

	result, err := p.Profile(context.Background(), domain.QueryRequest{SQL: "UPDATE users SET email = ? WHERE id = ?"})
	require.NoError(t, err)
	assert.False(t, result.ReadOnly)
	assert.Len(t, pool.queries, 2)
}

func TestProfile_ReadOnlyGuardRefusesWithoutAcquiring(t *testing.T) {
	pool := newFakePool()
	p := NewQueryProfiler(pool, domain.SQLite, ProfilerConfig{ReadOnlyGuard: true}, nil, testLogger(), nil, nil)

	_, err := p.Profile(context.Background(), domain.QueryRequest{SQL: "DELETE FROM users WHERE id = ?"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExecution)
	assert.ErrorIs(t, err, domain.ErrMutatingStatement)
	assert.Equal(t, 0, pool.acquired)
}

func TestProfile_ReadOnlyGuardAllowsUnparseableStatements(t *testing.T) {
	pool := newFakePool()
	p := NewQueryProfiler(pool, domain.SQLite, ProfilerConfig{ReadOnlyGuard: true}, nil, testLogger(), nil, nil)

	// PRAGMA is SQLite-only syntax.
	result, err := p.Profile(context.Background(), domain.QueryRequest{SQL: "PRAGMA table_info(users)"})
	require.NoError(t, err)
	assert.False(t, result.ReadOnly)
	assert.Equal(t, 1, pool.released)
}

func TestProfile_DefaultThreshold(t *testing.T) {
	p := NewQueryProfiler(newFakePool(), domain.SQLite, ProfilerConfig{ThresholdMS: 0}, nil, nil, nil, nil)
	assert.Equal(t, domain.DefaultSlowQueryThresholdMS, p.ThresholdMS())

	p = NewQueryProfiler(newFakePool(), domain.SQLite, ProfilerConfig{ThresholdMS: 250}, nil, nil, nil, nil)
	assert.Equal(t, int64(250), p.ThresholdMS())
}

func TestProfile_PostgresDialect(t *testing.T) {
	pool := newFakePool().
		on("EXPLAIN SELECT", fakeResponse{rows: []map[string]any{
			{"QUERY PLAN": "Seq Scan on users  (cost=0.00..22.70 rows=6 width=36)"},
			{"QUERY PLAN": "  Filter: (email = $1)"},
		}})
	p := NewQueryProfiler(pool, domain.Postgres, ProfilerConfig{}, nil, testLogger(), nil, nil)

	result, err := p.Profile(context.Background(), domain.QueryRequest{SQL: "SELECT id FROM users WHERE email = $1", Params: []any{"x"}})
	require.NoError(t, err)
	require.Len(t, result.Plan, 2)
	assert.Contains(t, result.Recommendations, domain.AdviceTableScan)
}

func TestProfile_RecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool := newFakePool().on("SELECT", fakeResponse{err: errors.New("boom")})
	p := NewQueryProfiler(pool, domain.SQLite, ProfilerConfig{}, nil, testLogger(), tp.Tracer("test"), nil)

	_, err := p.Profile(context.Background(), domain.QueryRequest{SQL: "SELECT 1"})
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "QueryProfiler.Profile", spans[0].Name)
	assert.NotEmpty(t, spans[0].Events, "error should be recorded on the span")
}
