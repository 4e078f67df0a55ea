package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/guillermoBallester/querylens/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []fileEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	var entries []fileEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry fileEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry), "line %d: %s", len(entries)+1, scanner.Text())
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestNewFileAuditor_CreatesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	fa, err := NewFileAuditor(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, fa.Close()) }()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewFileAuditor_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := NewFileAuditor("/nonexistent/dir/audit.jsonl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening audit log")
}

func TestFileAuditor_Record_WritesNDJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	fa, err := NewFileAuditor(path)
	require.NoError(t, err)
	fa.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)) }

	fa.Record(context.Background(), port.AuditEntry{
		Operation:  "profile",
		SQL:        "SELECT * FROM users WHERE email = ?",
		DurationMS: 142,
		Slow:       true,
		RowCount:   3,
	})
	require.NoError(t, fa.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	entry := entries[0]

	assert.Equal(t, "2026-03-01T11:00:00Z", entry.Timestamp)
	assert.Equal(t, "profile", entry.Operation)
	assert.Equal(t, "SELECT * FROM users WHERE email = ?", entry.SQL)
	assert.Equal(t, int64(142), entry.DurationMS)
	assert.True(t, entry.Slow)
	assert.Equal(t, 3, entry.RowCount)
	assert.Nil(t, entry.Error)
}

func TestFileAuditor_Record_WithError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	fa, err := NewFileAuditor(path)
	require.NoError(t, err)

	fa.Record(context.Background(), port.AuditEntry{
		Operation: "profile",
		SQL:       "SELECT * FROM userz",
		Err:       fmt.Errorf("no such table: userz"),
	})
	require.NoError(t, fa.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Error)
	assert.Equal(t, "no such table: userz", *entries[0].Error)
}

func TestFileAuditor_Record_ConcurrentWrites(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	fa, err := NewFileAuditor(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			fa.Record(context.Background(), port.AuditEntry{
				Operation: "profile",
				SQL:       fmt.Sprintf("SELECT %d", n),
			})
		}(i)
	}
	wg.Wait()
	require.NoError(t, fa.Close())

	assert.Len(t, readEntries(t, path), 50)
}

func TestFileAuditor_Append(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	for i := range 2 {
		fa, err := NewFileAuditor(path)
		require.NoError(t, err)
		fa.Record(context.Background(), port.AuditEntry{Operation: "profile", SQL: fmt.Sprintf("SELECT %d", i)})
		require.NoError(t, fa.Close())
	}

	entries := readEntries(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "SELECT 0", entries[0].SQL)
	assert.Equal(t, "SELECT 1", entries[1].SQL)
}

func TestNoopAuditor(t *testing.T) {
	t.Parallel()
	var a port.QueryAuditor = NoopAuditor{}
	a.Record(context.Background(), port.AuditEntry{Operation: "profile", SQL: "SELECT 1"})
	assert.NoError(t, a.Close())
}
