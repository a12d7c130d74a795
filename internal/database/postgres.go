package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/models"
)

// PostgresStore is the server-backed adapter. Concurrency control is left
// to the server; no client-side lock is held.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewPostgresStore connects using a DATABASE_URL-style connection string,
// runs the idempotent legacy migrations, and creates the schema.
func NewPostgresStore(databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &PostgresStore{db: db, logger: logger, now: time.Now}

	ctx := context.Background()
	if err := s.db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	// TIMESTAMP without time zone keeps DATE(created_at) immutable, which
	// the expression index below requires.
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		username TEXT,
		name TEXT,
		gender TEXT,
		age INTEGER,
		height DOUBLE PRECISION,
		weight DOUBLE PRECISION,
		activity_level TEXT,
		daily_calories INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS meal_history (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		food_name TEXT NOT NULL,
		calories INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT 'other',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_meal_history_user_id ON meal_history(user_id);
	CREATE INDEX IF NOT EXISTS idx_meal_history_created_at ON meal_history(created_at);
	CREATE INDEX IF NOT EXISTS idx_meal_history_user_date ON meal_history(user_id, DATE(created_at));
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// UpsertUser inserts or replaces a profile keyed by user id. created_at is
// preserved for existing rows; updated_at is refreshed on every write.
func (s *PostgresStore) UpsertUser(ctx context.Context, profile *models.UserProfile) error {
	query := `
		INSERT INTO users (user_id, username, name, gender, age, height, weight, activity_level, daily_calories, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			name = EXCLUDED.name,
			gender = EXCLUDED.gender,
			age = EXCLUDED.age,
			height = EXCLUDED.height,
			weight = EXCLUDED.weight,
			activity_level = EXCLUDED.activity_level,
			daily_calories = EXCLUDED.daily_calories,
			updated_at = EXCLUDED.updated_at
	`

	now := s.now()
	_, err := s.db.ExecContext(ctx, query,
		profile.UserID,
		profile.Username,
		profile.Name,
		string(profile.Gender),
		profile.Age,
		profile.Height,
		profile.Weight,
		string(profile.ActivityLevel),
		profile.DailyCalories,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetUser retrieves a profile by user id.
func (s *PostgresStore) GetUser(ctx context.Context, userID int64) (*models.UserProfile, error) {
	query := `
		SELECT user_id, username, name, gender, age, height, weight, activity_level, daily_calories, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`

	var (
		profile  models.UserProfile
		username sql.NullString
		name     sql.NullString
		gender   sql.NullString
		age      sql.NullInt64
		height   sql.NullFloat64
		weight   sql.NullFloat64
		activity sql.NullString
		target   sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&username,
		&name,
		&gender,
		&age,
		&height,
		&weight,
		&activity,
		&target,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	profile.Username = username.String
	profile.Name = name.String
	profile.Gender = models.Gender(gender.String)
	profile.Age = int(age.Int64)
	profile.Height = height.Float64
	profile.Weight = weight.Float64
	profile.ActivityLevel = models.ActivityLevel(activity.String)
	profile.DailyCalories = int(target.Int64)

	return &profile, nil
}

// AddMealRecord stores one meal for the user. The label is truncated to
// MaxFoodNameLength and the source mapped onto the fixed vocabulary.
func (s *PostgresStore) AddMealRecord(ctx context.Context, userID int64, foodName string, calories int, source string) error {
	if calories <= 0 {
		return fmt.Errorf("calories must be a positive integer, got %d", calories)
	}

	query := `
		INSERT INTO meal_history (user_id, food_name, calories, source, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		userID,
		TruncateFoodName(foodName),
		calories,
		string(models.ParseMealSource(source)),
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to add meal record: %w", err)
	}

	return nil
}

// GetMealHistory returns the user's most recent records, newest first.
func (s *PostgresStore) GetMealHistory(ctx context.Context, userID int64, limit int) ([]models.MealRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT id, user_id, food_name, calories, source, created_at
		FROM meal_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal history: %w", err)
	}
	defer rows.Close()

	return scanPostgresMealRows(rows)
}

// GetMealHistoryByPeriod filters on the calendar-date component of the
// record timestamp, inclusive on both ends.
func (s *PostgresStore) GetMealHistoryByPeriod(ctx context.Context, userID int64, startDate, endDate time.Time) ([]models.MealRecord, error) {
	query := `
		SELECT id, user_id, food_name, calories, source, created_at
		FROM meal_history
		WHERE user_id = $1 AND DATE(created_at) >= $2::date AND DATE(created_at) <= $3::date
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, startDate.Format(dateLayout), endDate.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query meal history by period: %w", err)
	}
	defer rows.Close()

	return scanPostgresMealRows(rows)
}

// GetDailyCalorieSum sums calories recorded on the current calendar day.
func (s *PostgresStore) GetDailyCalorieSum(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(calories), 0)
		FROM meal_history
		WHERE user_id = $1 AND DATE(created_at) = $2::date
	`

	var sum int
	err := s.db.QueryRowContext(ctx, query, userID, s.now().Format(dateLayout)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to get daily calorie sum: %w", err)
	}

	return sum, nil
}

// GetWeeklySummary aggregates the trailing seven days per calendar day.
func (s *PostgresStore) GetWeeklySummary(ctx context.Context, userID int64) (*models.WeeklySummary, error) {
	query := `
		SELECT DATE(created_at)::text AS day, SUM(calories), COUNT(*)
		FROM meal_history
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY DATE(created_at)
		ORDER BY day DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, s.now().AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly summary: %w", err)
	}
	defer rows.Close()

	summary := &models.WeeklySummary{}
	for rows.Next() {
		var day models.DayBreakdown
		if err := rows.Scan(&day.Date, &day.Calories, &day.Meals); err != nil {
			return nil, fmt.Errorf("failed to scan weekly summary row: %w", err)
		}
		summary.Days = append(summary.Days, day)
		summary.TotalWeekly += day.Calories
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read weekly summary rows: %w", err)
	}
	summary.DaysCount = len(summary.Days)

	return summary, nil
}

// ResetDailyCalories deletes today's records only.
func (s *PostgresStore) ResetDailyCalories(ctx context.Context, userID int64) error {
	query := `DELETE FROM meal_history WHERE user_id = $1 AND DATE(created_at) = $2::date`

	result, err := s.db.ExecContext(ctx, query, userID, s.now().Format(dateLayout))
	if err != nil {
		return fmt.Errorf("failed to reset daily calories: %w", err)
	}

	if deleted, err := result.RowsAffected(); err == nil && deleted > 0 {
		s.logger.Info("daily_records_deleted",
			zap.Int64("user_id", userID),
			zap.Int64("count", deleted),
		)
	}

	return nil
}

// ResetAllUserData deletes all meal records and the profile row for the
// user. Deleting an unknown user is a no-op.
func (s *PostgresStore) ResetAllUserData(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM meal_history WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete meal records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user reset: %w", err)
	}

	s.logger.Info("user_data_reset", zap.Int64("user_id", userID))
	return nil
}

// CleanCorruptedData deletes meal rows whose calorie value is not a
// positive integer. The text-cast predicate also covers legacy schemas
// where the column was character data.
func (s *PostgresStore) CleanCorruptedData(ctx context.Context) (int64, error) {
	query := `DELETE FROM meal_history WHERE NOT (calories::text ~ '^[0-9]+$') OR calories <= 0`

	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to clean corrupted data: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleaned rows: %w", err)
	}
	if removed > 0 {
		s.logger.Info("corrupted_meal_rows_removed", zap.Int64("count", removed))
	}

	return removed, nil
}

// RecalcTargets normalizes legacy activity-level spellings and recomputes
// every stored daily target.
func (s *PostgresStore) RecalcTargets(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, gender, age, height, weight, activity_level, daily_calories
		FROM users
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to query users: %w", err)
	}

	profiles, err := collectProfileRows(rows)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, p := range profiles {
		level, target := recalcProfile(p)
		if level == p.activity && target == p.target {
			continue
		}

		_, err := s.db.ExecContext(ctx,
			`UPDATE users SET activity_level = $1, daily_calories = $2, updated_at = $3 WHERE user_id = $4`,
			level, target, s.now(), p.userID,
		)
		if err != nil {
			return updated, fmt.Errorf("failed to update user %d: %w", p.userID, err)
		}
		updated++
	}

	return updated, nil
}

// Stats reports stored row counts.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.Users); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meal_history`).Scan(&stats.Meals); err != nil {
		return nil, fmt.Errorf("failed to count meal records: %w", err)
	}

	return stats, nil
}

// PurgeAll wipes both tables.
func (s *PostgresStore) PurgeAll(ctx context.Context) (int64, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	mealsResult, err := tx.ExecContext(ctx, `DELETE FROM meal_history`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to purge meal records: %w", err)
	}
	usersResult, err := tx.ExecContext(ctx, `DELETE FROM users`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to purge users: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit purge: %w", err)
	}

	meals, _ := mealsResult.RowsAffected()
	users, _ := usersResult.RowsAffected()
	return users, meals, nil
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scanPostgresMealRows(rows *sql.Rows) ([]models.MealRecord, error) {
	var records []models.MealRecord
	for rows.Next() {
		var (
			rec    models.MealRecord
			source string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.FoodName, &rec.Calories, &source, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal record: %w", err)
		}
		rec.Source = models.MealSource(source)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read meal records: %w", err)
	}

	return records, nil
}
