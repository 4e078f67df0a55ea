package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/querylens/internal/core/port"
)

// fileEntry is the NDJSON-serializable form of an audit record.
type fileEntry struct {
	Timestamp  string  `json:"ts"`
	Operation  string  `json:"operation"`
	SQL        string  `json:"sql"`
	DurationMS int64   `json:"duration_ms"`
	Slow       bool    `json:"slow"`
	RowCount   int     `json:"row_count"`
	Error      *string `json:"error"`
}

// FileAuditor writes one NDJSON line per profiled statement.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileAuditor{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

func (a *FileAuditor) Record(_ context.Context, entry port.AuditEntry) {
	fe := fileEntry{
		Timestamp:  a.now().UTC().Format(time.RFC3339Nano),
		Operation:  entry.Operation,
		SQL:        entry.SQL,
		DurationMS: entry.DurationMS,
		Slow:       entry.Slow,
		RowCount:   entry.RowCount,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(fe) // best-effort; audit I/O never fails a profile
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, port.AuditEntry) {}
func (NoopAuditor) Close() error                            { return nil }
