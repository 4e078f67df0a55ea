package domain

import "strings"

// Dialect describes the introspection surface of one database engine.
type Dialect struct {
	// Name is the OTel db.system value.
	Name string
	// ExplainPrefix turns a statement into its plan-only form.
	ExplainPrefix string
	// DetailColumn is the explain output column holding the step text.
	DetailColumn string
	// InternalIndexPrefix marks engine-owned indexes that are never reported.
	InternalIndexPrefix string
	// IndexCatalogQuery returns name, table_name and definition columns.
	IndexCatalogQuery string

	tableScan func(detail string) bool
	// derivedSource names the intermediate result a step builds, if any.
	derivedSource func(detail string) (string, bool)
	// scanTarget names the relation a scan step reads.
	scanTarget func(detail string) string
}

// SQLite is the embedded default. EXPLAIN QUERY PLAN returns id, parent, notused, detail.
var SQLite = Dialect{
	Name:                "sqlite",
	ExplainPrefix:       "EXPLAIN QUERY PLAN ",
	DetailColumn:        "detail",
	InternalIndexPrefix: "sqlite_",
	IndexCatalogQuery: `
		SELECT name, tbl_name AS table_name, sql AS definition
		FROM sqlite_master
		WHERE type = 'index'
		AND name NOT LIKE 'sqlite_%'`,
	tableScan:     sqliteTableScan,
	derivedSource: sqliteDerivedSource,
	scanTarget:    sqliteScanTarget,
}

// Postgres returns one text row per plan line under the "QUERY PLAN" column.
var Postgres = Dialect{
	Name:                "postgresql",
	ExplainPrefix:       "EXPLAIN ",
	DetailColumn:        "QUERY PLAN",
	InternalIndexPrefix: "pg_",
	IndexCatalogQuery: `
		SELECT indexname AS name, tablename AS table_name, indexdef AS definition
		FROM pg_indexes
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		AND schemaname NOT LIKE 'pg_toast%'`,
	tableScan: postgresTableScan,
}

// ExplainSQL returns the plan-only form of sql.
func (d Dialect) ExplainSQL(sql string) string {
	return d.ExplainPrefix + sql
}

// IsTableScan reports whether a plan step reads a whole table.
func (d Dialect) IsTableScan(detail string) bool {
	if d.tableScan == nil {
		return strings.Contains(detail, "SCAN TABLE")
	}
	return d.tableScan(detail)
}

// ScansTable reports whether any step of plan reads a whole base table. Scans
// of a materialized CTE or a co-routine subquery read an intermediate result
// built earlier in the same plan and do not count.
func (d Dialect) ScansTable(plan []PlanStep) bool {
	derived := make(map[string]bool)
	if d.derivedSource != nil {
		for _, step := range plan {
			if name, ok := d.derivedSource(step.Detail); ok {
				derived[name] = true
			}
		}
	}

	for _, step := range plan {
		if !d.IsTableScan(step.Detail) {
			continue
		}
		if d.scanTarget != nil && derived[d.scanTarget(step.Detail)] {
			continue
		}
		return true
	}
	return false
}

// IsInternalIndex reports whether name belongs to the engine.
func (d Dialect) IsInternalIndex(name string) bool {
	return d.InternalIndexPrefix != "" && strings.HasPrefix(name, d.InternalIndexPrefix)
}

// sqliteTableScan accepts both "SCAN TABLE users" (SQLite < 3.36) and "SCAN users".
// Index scans and constant rows are not table scans.
func sqliteTableScan(detail string) bool {
	upper := strings.ToUpper(strings.TrimSpace(detail))
	if strings.Contains(upper, "SCAN TABLE") {
		return !strings.Contains(upper, " USING ")
	}
	if !strings.HasPrefix(upper, "SCAN ") || strings.HasPrefix(upper, "SCAN SUBQUERY") {
		return false
	}
	return !strings.Contains(upper, " USING ") && !strings.Contains(upper, "CONSTANT ROW")
}

// sqliteDerivedSource matches "MATERIALIZE c" and "CO-ROUTINE s".
func sqliteDerivedSource(detail string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(detail))
	for _, prefix := range []string{"MATERIALIZE ", "CO-ROUTINE "} {
		if rest, ok := strings.CutPrefix(upper, prefix); ok {
			if name := firstField(rest); name != "" {
				return name, true
			}
		}
	}
	return "", false
}

// sqliteScanTarget returns "USERS" for both "SCAN TABLE users" and "SCAN users AS u".
func sqliteScanTarget(detail string) string {
	upper := strings.ToUpper(strings.TrimSpace(detail))
	rest, ok := strings.CutPrefix(upper, "SCAN ")
	if !ok {
		return ""
	}
	rest = strings.TrimPrefix(rest, "TABLE ")
	return firstField(rest)
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func postgresTableScan(detail string) bool {
	return strings.Contains(detail, "Seq Scan")
}
