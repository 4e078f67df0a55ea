package port

import "context"

// AuditEntry represents a single profiled statement.
type AuditEntry struct {
	Operation  string
	SQL        string
	DurationMS int64
	Slow       bool
	RowCount   int
	Err        error
}

// QueryAuditor records profiling events.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}
