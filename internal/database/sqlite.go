package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/dkotenko/calobot/internal/models"
	"github.com/dkotenko/calobot/internal/nutrition"
)

// SQLiteStore is the embedded-engine adapter. One mutex serializes every
// operation because the engine does not tolerate concurrent writers; the
// lock is held per operation, never across logical operations.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database file, runs the
// idempotent legacy migrations, and creates the schema.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: logger, now: time.Now}

	ctx := context.Background()
	if err := s.db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Migrations run before schema creation so a legacy table gets renamed
	// instead of shadowed by a fresh empty one.
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

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		username TEXT,
		name TEXT,
		gender TEXT,
		age INTEGER,
		height REAL,
		weight REAL,
		activity_level TEXT,
		daily_calories INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS meal_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
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
func (s *SQLiteStore) UpsertUser(ctx context.Context, profile *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (user_id, username, name, gender, age, height, weight, activity_level, daily_calories, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			name = excluded.name,
			gender = excluded.gender,
			age = excluded.age,
			height = excluded.height,
			weight = excluded.weight,
			activity_level = excluded.activity_level,
			daily_calories = excluded.daily_calories,
			updated_at = excluded.updated_at
	`

	now := s.now().Format(sqliteTimeLayout)
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
func (s *SQLiteStore) GetUser(ctx context.Context, userID int64) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT user_id, username, name, gender, age, height, weight, activity_level, daily_calories, created_at, updated_at
		FROM users
		WHERE user_id = ?
	`

	var (
		profile   models.UserProfile
		username  sql.NullString
		name      sql.NullString
		gender    sql.NullString
		age       sql.NullInt64
		height    sql.NullFloat64
		weight    sql.NullFloat64
		activity  sql.NullString
		target    sql.NullInt64
		createdAt string
		updatedAt string
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
		&createdAt,
		&updatedAt,
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

	if profile.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if profile.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &profile, nil
}

// AddMealRecord stores one meal for the user. The label is truncated to
// MaxFoodNameLength and the source mapped onto the fixed vocabulary.
func (s *SQLiteStore) AddMealRecord(ctx context.Context, userID int64, foodName string, calories int, source string) error {
	if calories <= 0 {
		return fmt.Errorf("calories must be a positive integer, got %d", calories)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO meal_history (user_id, food_name, calories, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		userID,
		TruncateFoodName(foodName),
		calories,
		string(models.ParseMealSource(source)),
		s.now().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to add meal record: %w", err)
	}

	return nil
}

// GetMealHistory returns the user's most recent records, newest first.
func (s *SQLiteStore) GetMealHistory(ctx context.Context, userID int64, limit int) ([]models.MealRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, user_id, food_name, calories, source, created_at
		FROM meal_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal history: %w", err)
	}
	defer rows.Close()

	return scanSQLiteMealRows(rows)
}

// GetMealHistoryByPeriod filters on the calendar-date component of the
// record timestamp, inclusive on both ends.
func (s *SQLiteStore) GetMealHistoryByPeriod(ctx context.Context, userID int64, startDate, endDate time.Time) ([]models.MealRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, user_id, food_name, calories, source, created_at
		FROM meal_history
		WHERE user_id = ? AND DATE(created_at) >= ? AND DATE(created_at) <= ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, startDate.Format(dateLayout), endDate.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query meal history by period: %w", err)
	}
	defer rows.Close()

	return scanSQLiteMealRows(rows)
}

// GetDailyCalorieSum sums calories recorded on the current calendar day.
func (s *SQLiteStore) GetDailyCalorieSum(ctx context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT COALESCE(SUM(calories), 0)
		FROM meal_history
		WHERE user_id = ? AND DATE(created_at) = ?
	`

	var sum int
	err := s.db.QueryRowContext(ctx, query, userID, s.now().Format(dateLayout)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to get daily calorie sum: %w", err)
	}

	return sum, nil
}

// GetWeeklySummary aggregates the trailing seven days per calendar day.
func (s *SQLiteStore) GetWeeklySummary(ctx context.Context, userID int64) (*models.WeeklySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// datetime() normalizes current naive rows and legacy RFC 3339 rows
	// onto one format before comparison.
	query := `
		SELECT DATE(created_at) AS day, SUM(calories), COUNT(*)
		FROM meal_history
		WHERE user_id = ? AND datetime(created_at) >= datetime(?)
		GROUP BY DATE(created_at)
		ORDER BY day DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, s.now().AddDate(0, 0, -7).Format(sqliteTimeLayout))
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
func (s *SQLiteStore) ResetDailyCalories(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `DELETE FROM meal_history WHERE user_id = ? AND DATE(created_at) = ?`

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
func (s *SQLiteStore) ResetAllUserData(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM meal_history WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete meal records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user reset: %w", err)
	}

	s.logger.Info("user_data_reset", zap.Int64("user_id", userID))
	return nil
}

// CleanCorruptedData deletes meal rows whose calorie value is not a
// positive integer. The embedded engine stores whatever type a legacy
// writer bound, so the predicate checks the stored type as well.
func (s *SQLiteStore) CleanCorruptedData(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `DELETE FROM meal_history WHERE typeof(calories) != 'integer' OR calories <= 0`

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
func (s *SQLiteStore) RecalcTargets(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Collect first: with a single connection, updating while the result
	// set is open would deadlock.
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
			`UPDATE users SET activity_level = ?, daily_calories = ?, updated_at = ? WHERE user_id = ?`,
			level, target, s.now().Format(sqliteTimeLayout), p.userID,
		)
		if err != nil {
			return updated, fmt.Errorf("failed to update user %d: %w", p.userID, err)
		}
		updated++
	}

	return updated, nil
}

// Stats reports stored row counts.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
func (s *SQLiteStore) PurgeAll(ctx context.Context) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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

// Ping verifies the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.PingContext(ctx)
}

// Close releases the underlying handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteMealRows(rows *sql.Rows) ([]models.MealRecord, error) {
	var records []models.MealRecord
	for rows.Next() {
		var (
			rec       models.MealRecord
			source    string
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.FoodName, &rec.Calories, &source, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal record: %w", err)
		}

		ts, err := parseSQLiteTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		rec.Source = models.MealSource(source)
		rec.CreatedAt = ts
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read meal records: %w", err)
	}

	return records, nil
}

// sqliteTimeLayout stores naive local wall-clock time. DATE() truncates it
// without the UTC shift it applies to offset-bearing strings, so calendar
// attribution matches the Go-side date parameters.
const sqliteTimeLayout = "2006-01-02 15:04:05.999999999"

// sqliteTimeLayouts covers values written by this adapter plus earlier
// schema generations (CURRENT_TIMESTAMP defaults, RFC 3339 writers).
var sqliteTimeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02",
}

func parseSQLiteTime(value string) (time.Time, error) {
	for _, layout := range sqliteTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// profileRow carries the attributes RecalcTargets needs, tolerating NULLs
// left behind by earlier schema generations.
type profileRow struct {
	userID   int64
	gender   string
	age      int
	height   float64
	weight   float64
	activity string
	target   int
}

func collectProfileRows(rows *sql.Rows) ([]profileRow, error) {
	defer rows.Close()

	var profiles []profileRow
	for rows.Next() {
		var (
			p        profileRow
			gender   sql.NullString
			age      sql.NullInt64
			height   sql.NullFloat64
			weight   sql.NullFloat64
			activity sql.NullString
			target   sql.NullInt64
		)
		if err := rows.Scan(&p.userID, &gender, &age, &height, &weight, &activity, &target); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		p.gender = gender.String
		p.age = int(age.Int64)
		p.height = height.Float64
		p.weight = weight.Float64
		p.activity = activity.String
		p.target = int(target.Int64)
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}

	return profiles, nil
}

// recalcProfile resolves the stored activity value to its canonical
// spelling and recomputes the daily target from the profile attributes.
func recalcProfile(p profileRow) (string, int) {
	level := p.activity
	if normalized := models.NormalizeActivityLevel(p.activity); normalized != "" {
		level = string(normalized)
	}
	target := nutrition.DailyTarget(
		models.Gender(p.gender), p.age, p.height, p.weight, models.ActivityLevel(level),
	)
	return level, target
}
