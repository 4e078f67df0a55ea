package domain

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// StatementClassifier decides whether a statement only reads data, using
// PostgreSQL's parser. SQLite "?" placeholders are rebound before parsing.
type StatementClassifier struct{}

func NewStatementClassifier() *StatementClassifier {
	return &StatementClassifier{}
}

// IsReadOnly reports whether every statement in sql is a plain read.
func (c *StatementClassifier) IsReadOnly(sql string) (bool, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return false, ErrEmptyQuery
	}

	tree, err := pg_query.Parse(RebindDollar(trimmed))
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	if len(tree.Stmts) == 0 {
		return false, ErrEmptyQuery
	}

	for _, raw := range tree.Stmts {
		if raw.Stmt == nil || !readOnlyNode(raw.Stmt) {
			return false, nil
		}
	}
	return true, nil
}

func readOnlyNode(node *pg_query.Node) bool {
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		// SELECT ... INTO creates a table.
		return n.SelectStmt.GetIntoClause() == nil && !modifyingCTE(n.SelectStmt.GetWithClause())
	case *pg_query.Node_ExplainStmt:
		return !explainAnalyze(n.ExplainStmt) || readOnlyNode(n.ExplainStmt.GetQuery())
	case *pg_query.Node_VariableShowStmt:
		return true
	default:
		return false
	}
}

// modifyingCTE reports whether a WITH clause contains INSERT, UPDATE or DELETE.
func modifyingCTE(with *pg_query.WithClause) bool {
	if with == nil {
		return false
	}
	for _, cte := range with.GetCtes() {
		expr, ok := cte.Node.(*pg_query.Node_CommonTableExpr)
		if !ok || expr.CommonTableExpr == nil {
			continue
		}
		if q := expr.CommonTableExpr.GetCtequery(); q != nil && !readOnlyNode(q) {
			return true
		}
	}
	return false
}

// explainAnalyze reports whether EXPLAIN carries the ANALYZE option, which executes the query.
func explainAnalyze(stmt *pg_query.ExplainStmt) bool {
	for _, opt := range stmt.GetOptions() {
		def, ok := opt.Node.(*pg_query.Node_DefElem)
		if ok && def.DefElem != nil && strings.EqualFold(def.DefElem.GetDefname(), "analyze") {
			return true
		}
	}
	return false
}
