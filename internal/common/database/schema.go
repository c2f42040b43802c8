package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// MissingTables returns the names from tables that do not resolve in the
// connection's search path.
func MissingTables(ctx context.Context, db *sqlx.DB, tables []string) ([]string, error) {
	var missing []string
	for _, t := range tables {
		var found bool
		if err := db.GetContext(ctx, &found, `SELECT to_regclass($1) IS NOT NULL`, t); err != nil {
			return nil, fmt.Errorf("check table %s: %w", t, err)
		}
		if !found {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// CountTables counts the tables in the public schema.
func CountTables(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	err := db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public'`)
	if err != nil {
		return 0, fmt.Errorf("count tables: %w", err)
	}
	return count, nil
}
