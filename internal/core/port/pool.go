package port

import "context"

// Conn is a connection acquired from a ConnPool. Query materializes every row
// before returning.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// ConnPool hands out scoped connections. Every successful Acquire is paired
// with exactly one Release.
type ConnPool interface {
	Acquire(ctx context.Context) (Conn, error)
	Release(conn Conn)
}
