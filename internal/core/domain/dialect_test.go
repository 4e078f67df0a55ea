package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSQLite_IsTableScan(t *testing.T) {
	tests := []struct {
		detail string
		want   bool
	}{
		{"SCAN TABLE users", true},
		{"SCAN users", true},
		{"scan users", true},
		{"SCAN TABLE users USING INDEX idx_users_email", false},
		{"SCAN users USING COVERING INDEX idx_users_email", false},
		{"SEARCH users USING INDEX idx_users_email (email=?)", false},
		{"SEARCH users USING INTEGER PRIMARY KEY (rowid=?)", false},
		{"SCAN CONSTANT ROW", false},
		{"SCAN SUBQUERY 1", false},
		{"USE TEMP B-TREE FOR ORDER BY", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.detail, func(t *testing.T) {
			assert.Equal(t, tt.want, SQLite.IsTableScan(tt.detail))
		})
	}
}

func TestSQLite_ScansTable(t *testing.T) {
	tests := []struct {
		name string
		plan []string
		want bool
	}{
		{"base table", []string{"SCAN users"}, true},
		{"legacy base table", []string{"SCAN TABLE users AS u"}, true},
		{"indexed", []string{"SEARCH users USING INDEX idx_users_username (username=?)"}, false},
		{"materialized cte", []string{
			"MATERIALIZE c",
			"SEARCH users USING COVERING INDEX idx_users_username (username=?)",
			"SCAN c",
		}, false},
		{"co-routine subquery", []string{
			"CO-ROUTINE s",
			"SEARCH users USING INDEX idx_users_username (username=?)",
			"SCAN s",
		}, false},
		{"cte over a full scan", []string{
			"MATERIALIZE c",
			"SCAN users",
			"SCAN c",
		}, true},
		{"derived name differs from scanned table", []string{
			"CO-ROUTINE s",
			"SEARCH users USING INDEX idx_users_username (username=?)",
			"SCAN s",
			"SCAN posts",
		}, true},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := make([]PlanStep, 0, len(tt.plan))
			for _, d := range tt.plan {
				plan = append(plan, PlanStep{Detail: d})
			}
			assert.Equal(t, tt.want, SQLite.ScansTable(plan))
		})
	}
}

func TestPostgres_IsTableScan(t *testing.T) {
	assert.True(t, Postgres.IsTableScan("Seq Scan on users  (cost=0.00..22.70 rows=1270 width=68)"))
	assert.True(t, Postgres.IsTableScan("  ->  Parallel Seq Scan on events"))
	assert.False(t, Postgres.IsTableScan("Index Scan using users_pkey on users"))
	assert.False(t, Postgres.IsTableScan("Bitmap Heap Scan on users"))
}

func TestDialect_ZeroValueFallsBackToScanTableMarker(t *testing.T) {
	var d Dialect
	assert.True(t, d.IsTableScan("SCAN TABLE users"))
	assert.False(t, d.IsTableScan("SCAN users"))
}

func TestDialect_IsInternalIndex(t *testing.T) {
	assert.True(t, SQLite.IsInternalIndex("sqlite_autoindex_users_1"))
	assert.False(t, SQLite.IsInternalIndex("idx_users_email"))
	assert.False(t, SQLite.IsInternalIndex("sqliteidx"))
	assert.True(t, Postgres.IsInternalIndex("pg_class_oid_index"))
	assert.False(t, Postgres.IsInternalIndex("users_pkey"))
}

func TestDialect_ExplainSQL(t *testing.T) {
	assert.Equal(t, "EXPLAIN QUERY PLAN SELECT 1", SQLite.ExplainSQL("SELECT 1"))
	assert.Equal(t, "EXPLAIN SELECT 1", Postgres.ExplainSQL("SELECT 1"))
}
