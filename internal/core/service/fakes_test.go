package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/guillermoBallester/querylens/internal/core/domain"
	"github.com/guillermoBallester/querylens/internal/core/port"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fake ConnPool ---

// fakeResponse is what fakeConn returns for SQL starting with a given prefix.
type fakeResponse struct {
	rows  []map[string]any
	err   error
	panic string
}

type fakePool struct {
	mu         sync.Mutex
	acquireErr error
	responses  map[string]fakeResponse // keyed by SQL prefix
	acquired   int
	released   int
	queries    []string
	lastArgs   [][]any
}

func newFakePool() *fakePool {
	return &fakePool{responses: make(map[string]fakeResponse)}
}

func (p *fakePool) on(prefix string, resp fakeResponse) *fakePool {
	p.responses[prefix] = resp
	return p
}

func (p *fakePool) Acquire(_ context.Context) (port.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return &fakeConn{pool: p}, nil
}

func (p *fakePool) Release(_ port.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

type fakeConn struct {
	pool *fakePool
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) ([]map[string]any, error) {
	c.pool.mu.Lock()
	c.pool.queries = append(c.pool.queries, sql)
	c.pool.lastArgs = append(c.pool.lastArgs, args)
	resp, ok := c.pool.match(sql)
	c.pool.mu.Unlock()

	if !ok {
		return nil, nil
	}
	if resp.panic != "" {
		panic(resp.panic)
	}
	return resp.rows, resp.err
}

// match picks the longest registered prefix so "EXPLAIN QUERY PLAN SELECT" wins over "SELECT".
func (p *fakePool) match(sql string) (fakeResponse, bool) {
	best := -1
	var resp fakeResponse
	trimmed := strings.TrimSpace(sql)
	for prefix, r := range p.responses {
		if strings.HasPrefix(trimmed, prefix) && len(prefix) > best {
			best = len(prefix)
			resp = r
		}
	}
	return resp, best >= 0
}

// --- recording sink ---

type recordingSink struct {
	cases    []string
	errs     []string
	indexes  []string
	flushed  int
	writeErr error
}

func (s *recordingSink) WriteCase(_ context.Context, outcome domain.CaseOutcome) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.cases = append(s.cases, outcome.Name)
	s.errs = append(s.errs, outcome.Err)
	return nil
}

func (s *recordingSink) WriteIndexes(_ context.Context, indexes []domain.IndexDescriptor) error {
	for _, idx := range indexes {
		s.indexes = append(s.indexes, idx.Name)
	}
	return nil
}

func (s *recordingSink) Flush() error {
	s.flushed++
	return nil
}
