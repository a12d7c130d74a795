package database

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/config"
	"github.com/dkotenko/calobot/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const (
	// MaxFoodNameLength caps stored meal labels. Longer labels are cut and
	// marked with an ellipsis.
	MaxFoodNameLength = 50

	// DefaultHistoryLimit bounds history queries when the caller does not
	// supply a limit.
	DefaultHistoryLimit = 50

	truncationMarker = "..."

	dateLayout = "2006-01-02"
)

// Stats summarizes stored row counts.
type Stats struct {
	Users int64 `json:"users"`
	Meals int64 `json:"meals"`
}

// Store is the persistence boundary for user profiles and meal records.
// Both backends expose identical semantics; placeholder syntax and
// timestamp handling stay inside each adapter.
type Store interface {
	// UpsertUser inserts or replaces a profile keyed by user id,
	// refreshing updated_at and preserving created_at for existing rows.
	UpsertUser(ctx context.Context, profile *models.UserProfile) error
	// GetUser returns the profile or an error wrapping ErrNotFound.
	GetUser(ctx context.Context, userID int64) (*models.UserProfile, error)

	// AddMealRecord stores one meal. The label is truncated to
	// MaxFoodNameLength; the source is mapped onto the fixed vocabulary.
	AddMealRecord(ctx context.Context, userID int64, foodName string, calories int, source string) error
	// GetMealHistory returns the most recent records, newest first.
	GetMealHistory(ctx context.Context, userID int64, limit int) ([]models.MealRecord, error)
	// GetMealHistoryByPeriod filters on the calendar-date component of the
	// record timestamp, inclusive on both ends, newest first.
	GetMealHistoryByPeriod(ctx context.Context, userID int64, startDate, endDate time.Time) ([]models.MealRecord, error)
	// GetDailyCalorieSum sums calories recorded on the current calendar
	// day; 0 when there are none.
	GetDailyCalorieSum(ctx context.Context, userID int64) (int, error)
	// GetWeeklySummary aggregates the trailing seven days per calendar day.
	GetWeeklySummary(ctx context.Context, userID int64) (*models.WeeklySummary, error)

	// ResetDailyCalories deletes today's records only.
	ResetDailyCalories(ctx context.Context, userID int64) error
	// ResetAllUserData deletes all of a user's meal records and the
	// profile row. Irreversible.
	ResetAllUserData(ctx context.Context, userID int64) error

	// CleanCorruptedData deletes meal rows whose calorie value is not a
	// positive integer and reports how many were removed.
	CleanCorruptedData(ctx context.Context) (int64, error)
	// RecalcTargets normalizes legacy activity-level spellings and
	// recomputes every stored daily target, returning the number of
	// updated profiles.
	RecalcTargets(ctx context.Context) (int, error)
	// Stats reports stored row counts.
	Stats(ctx context.Context) (*Stats, error)
	// PurgeAll wipes both tables and reports rows removed per table.
	PurgeAll(ctx context.Context) (usersDeleted, mealsDeleted int64, err error)

	Ping(ctx context.Context) error
	Close() error
}

// Ensure adapters implement the interface.
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// Open selects the storage backend from configuration: a connection string
// selects PostgreSQL, its absence the embedded engine at the configured
// local path. Either constructor creates the schema and runs the
// idempotent migrations before returning.
func Open(cfg *config.Config, logger *zap.Logger) (Store, error) {
	if cfg.UsePostgres() {
		return NewPostgresStore(cfg.DatabaseURL, logger)
	}
	return NewSQLiteStore(cfg.SQLitePath, logger)
}

// TruncateFoodName bounds a meal label to MaxFoodNameLength runes, marking
// a cut with an ellipsis.
func TruncateFoodName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxFoodNameLength {
		return name
	}
	return string(runes[:MaxFoodNameLength-len(truncationMarker)]) + truncationMarker
}
