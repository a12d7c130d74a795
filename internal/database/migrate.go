package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Legacy schema generations are converged in place:
//
//  1. table calorie_history renamed to meal_history
//  2. columns meal_type -> food_name and description -> source renamed
//  3. character-varying source widened to TEXT (server engine only)
//  4. users.workouts_per_week dropped
//
// Every step probes the catalog before altering, so reruns are no-ops and
// a fresh database passes straight through.

type columnRename struct {
	table string
	from  string
	to    string
}

var legacyColumnRenames = []columnRename{
	{table: "meal_history", from: "meal_type", to: "food_name"},
	{table: "meal_history", from: "description", to: "source"},
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	legacy, err := s.tableExists(ctx, "calorie_history")
	if err != nil {
		return err
	}
	current, err := s.tableExists(ctx, "meal_history")
	if err != nil {
		return err
	}
	if legacy && !current {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE calorie_history RENAME TO meal_history`); err != nil {
			return fmt.Errorf("failed to rename calorie_history: %w", err)
		}
		s.logger.Info("schema_migration_applied", zap.String("step", "rename_calorie_history"))
	}

	for _, r := range legacyColumnRenames {
		hasOld, err := s.columnExists(ctx, r.table, r.from)
		if err != nil {
			return err
		}
		hasNew, err := s.columnExists(ctx, r.table, r.to)
		if err != nil {
			return err
		}
		if !hasOld || hasNew {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE %s RENAME COLUMN %s TO %s`, r.table, r.from, r.to)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to rename column %s.%s: %w", r.table, r.from, err)
		}
		s.logger.Info("schema_migration_applied",
			zap.String("step", "rename_column"),
			zap.String("column", r.from),
		)
	}

	// Length limits are advisory under this engine, so the widening step
	// does not apply here.

	hasWorkouts, err := s.columnExists(ctx, "users", "workouts_per_week")
	if err != nil {
		return err
	}
	if hasWorkouts {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE users DROP COLUMN workouts_per_week`); err != nil {
			return fmt.Errorf("failed to drop workouts_per_week: %w", err)
		}
		s.logger.Info("schema_migration_applied", zap.String("step", "drop_workouts_per_week"))
	}

	return nil
}

func (s *SQLiteStore) tableExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to probe table %s: %w", name, err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) columnExists(ctx context.Context, table, column string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to probe column %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	legacy, err := s.tableExists(ctx, "calorie_history")
	if err != nil {
		return err
	}
	current, err := s.tableExists(ctx, "meal_history")
	if err != nil {
		return err
	}
	if legacy && !current {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE calorie_history RENAME TO meal_history`); err != nil {
			return fmt.Errorf("failed to rename calorie_history: %w", err)
		}
		s.logger.Info("schema_migration_applied", zap.String("step", "rename_calorie_history"))
	}

	for _, r := range legacyColumnRenames {
		hasOld, err := s.columnExists(ctx, r.table, r.from)
		if err != nil {
			return err
		}
		hasNew, err := s.columnExists(ctx, r.table, r.to)
		if err != nil {
			return err
		}
		if !hasOld || hasNew {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE %s RENAME COLUMN %s TO %s`, r.table, r.from, r.to)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to rename column %s.%s: %w", r.table, r.from, err)
		}
		s.logger.Info("schema_migration_applied",
			zap.String("step", "rename_column"),
			zap.String("column", r.from),
		)
	}

	isVarchar, err := s.columnHasType(ctx, "meal_history", "source", "character varying")
	if err != nil {
		return err
	}
	if isVarchar {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE meal_history ALTER COLUMN source TYPE TEXT`); err != nil {
			return fmt.Errorf("failed to widen source column: %w", err)
		}
		s.logger.Info("schema_migration_applied", zap.String("step", "widen_source_column"))
	}

	hasWorkouts, err := s.columnExists(ctx, "users", "workouts_per_week")
	if err != nil {
		return err
	}
	if hasWorkouts {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE users DROP COLUMN workouts_per_week`); err != nil {
			return fmt.Errorf("failed to drop workouts_per_week: %w", err)
		}
		s.logger.Info("schema_migration_applied", zap.String("step", "drop_workouts_per_week"))
	}

	return nil
}

func (s *PostgresStore) tableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to probe table %s: %w", name, err)
	}
	return exists, nil
}

func (s *PostgresStore) columnExists(ctx context.Context, table, column string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
		)
	`, table, column).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to probe column %s.%s: %w", table, column, err)
	}
	return exists, nil
}

func (s *PostgresStore) columnHasType(ctx context.Context, table, column, dataType string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2 AND data_type = $3
		)
	`, table, column, dataType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to probe column type %s.%s: %w", table, column, err)
	}
	return exists, nil
}
