package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// collectMaps drains rows into one map per row keyed by column name. rows is
// closed on return. An empty result is a non-nil empty slice.
func collectMaps(rows pgx.Rows) ([]map[string]any, error) {
	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("collecting rows: %w", err)
	}
	return result, nil
}
