package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ValidateRuntimeSchema verifies the tables the handlers depend on exist
// before the server starts accepting requests.
func ValidateRuntimeSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	requiredTables := []string{
		"users",
		"sessions",
		"ratings",
		"comments",
		"crop_growth_records",
		"crop_predictions",
		"irrigation_plans",
		"posts",
		"post_comments",
		"blockchain_records",
	}

	for _, table := range requiredTables {
		ok, err := tableExists(ctx, pool, table)
		if err != nil {
			return fmt.Errorf("failed checking schema for %s: %w", table, err)
		}
		if !ok {
			return fmt.Errorf("required table %s is missing; run db.EnsureSchema", table)
		}
	}

	return nil
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	table := strings.TrimSpace(tableName)
	if table == "" {
		return false, fmt.Errorf("table must not be empty")
	}
	var exists bool
	err := pool.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.tables
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		 )`,
		table,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
