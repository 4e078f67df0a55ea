package domain

// DefaultSlowQueryThresholdMS is the duration above which a profiled query is slow.
const DefaultSlowQueryThresholdMS int64 = 100

// QueryRequest is a statement and its ordered bind values.
type QueryRequest struct {
	SQL    string `json:"sql" yaml:"sql"`
	Params []any  `json:"params,omitempty" yaml:"params,omitempty"`
}

// PlanStep is one row of planner output. Only Detail is inspected; Fields keeps
// the raw engine columns.
type PlanStep struct {
	Detail string         `json:"detail"`
	Fields map[string]any `json:"fields,omitempty"`
}

// ProfileResult is the outcome of profiling a single statement.
type ProfileResult struct {
	SQL             string     `json:"sql"`
	DurationMS      int64      `json:"duration_ms"`
	Slow            bool       `json:"slow"`
	Plan            []PlanStep `json:"plan"`
	Recommendations []string   `json:"recommendations"`
	RowCount        int        `json:"row_count"`
	ReadOnly        bool       `json:"read_only"`
}

// IndexDescriptor describes one user-defined index found in the catalog.
type IndexDescriptor struct {
	Name       string `json:"name"`
	TableName  string `json:"table_name"`
	Definition string `json:"definition"`
}

// DiagnosticCase is a named statement run by the report driver.
type DiagnosticCase struct {
	Name   string `json:"name" yaml:"name"`
	SQL    string `json:"sql" yaml:"sql"`
	Params []any  `json:"params,omitempty" yaml:"params,omitempty"`
}

// Request returns the case as a QueryRequest.
func (c DiagnosticCase) Request() QueryRequest {
	return QueryRequest{SQL: c.SQL, Params: c.Params}
}

// CaseOutcome is what the report driver produced for one case. Exactly one of
// Result and Err is set.
type CaseOutcome struct {
	Name   string         `json:"name"`
	SQL    string         `json:"sql"`
	Result *ProfileResult `json:"result,omitempty"`
	Err    string         `json:"error,omitempty"`
}

// IsSlow reports whether durationMS exceeds thresholdMS. The boundary itself is not slow.
func IsSlow(durationMS, thresholdMS int64) bool {
	return durationMS > thresholdMS
}

// Report is the complete output of one report run.
type Report struct {
	Cases   []CaseOutcome     `json:"cases"`
	Indexes []IndexDescriptor `json:"indexes"`
}
