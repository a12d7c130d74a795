// Package tracker holds per-user ephemeral session state: the meals
// selected today, the ephemeral daily calorie sum, the quick-analysis
// flag, and the in-progress registration draft. Nothing here is persisted;
// state is reconciled against the wall clock lazily on every access, so a
// user inactive across midnight sees a correct reset the moment they act
// again.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/models"
)

const dateLayout = "2006-01-02"

// DailyResetter is the slice of the persistence boundary the manual daily
// reset needs.
type DailyResetter interface {
	ResetDailyCalories(ctx context.Context, userID int64) error
}

// Tracker reconciles per-user daily state against the calendar. Safe for
// concurrent use; one lock guards the session map and the sessions behind
// it, and is never held across a store call.
type Tracker struct {
	mu       sync.Mutex
	sessions map[int64]*session
	store    DailyResetter
	logger   *zap.Logger
	now      func() time.Time
}

type session struct {
	lastResetDate string
	selected      map[models.MealType]bool
	dailySum      int
	quickAnalysis bool
	draft         *RegistrationDraft
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithNow injects the clock, for calendar-boundary tests.
func WithNow(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New creates a Tracker on top of the given store slice.
func New(store DailyResetter, logger *zap.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Tracker{
		sessions: make(map[int64]*session),
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// reconciled returns the user's session, created if absent, rolled over if
// the calendar date has advanced since the last access. Rolling over
// clears the selected-meals set and zeroes the ephemeral sum; the
// quick-analysis flag and a registration draft survive. Callers must hold
// t.mu.
func (t *Tracker) reconciled(userID int64) *session {
	s, ok := t.sessions[userID]
	if !ok {
		s = &session{selected: make(map[models.MealType]bool)}
		t.sessions[userID] = s
	}

	today := t.now().Format(dateLayout)
	if s.lastResetDate != today {
		s.selected = make(map[models.MealType]bool)
		s.dailySum = 0
		s.lastResetDate = today
		t.logger.Info("daily_state_rolled_over",
			zap.Int64("user_id", userID),
			zap.String("date", today),
		)
	}

	return s
}

// Reconcile applies the lazy daily rollover for the user. Idempotent:
// repeated calls within the same day change nothing.
func (t *Tracker) Reconcile(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reconciled(userID)
}

// MarkMealSelected records that a tracked meal type was logged today and
// reports whether it was newly added. Snacks are unlimited and never
// tracked.
func (t *Tracker) MarkMealSelected(userID int64, meal models.MealType) bool {
	if !meal.Tracked() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.reconciled(userID)
	if s.selected[meal] {
		return false
	}
	s.selected[meal] = true
	return true
}

// IsMealSelected reports whether the tracked meal type was already logged
// today.
func (t *Tracker) IsMealSelected(userID int64, meal models.MealType) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reconciled(userID).selected[meal]
}

// SelectedMeals returns today's selected tracked meal types in menu order.
func (t *Tracker) SelectedMeals(userID int64) []models.MealType {
	t.mu.Lock()
	defer t.mu.Unlock()
	return selectedList(t.reconciled(userID))
}

// AddCalories adds to the user's ephemeral daily sum and returns the new
// value. The persisted sum lives in the store; this one exists so the
// session can render a running total without a query.
func (t *Tracker) AddCalories(userID int64, calories int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.reconciled(userID)
	s.dailySum += calories
	return s.dailySum
}

// DailySum returns the ephemeral daily sum.
func (t *Tracker) DailySum(userID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reconciled(userID).dailySum
}

// SetQuickAnalysis toggles the one-shot quick-analysis flag. While set,
// the next analysis is not recorded against the daily total.
func (t *Tracker) SetQuickAnalysis(userID int64, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reconciled(userID).quickAnalysis = enabled
}

// QuickAnalysis reports the flag without consuming it.
func (t *Tracker) QuickAnalysis(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reconciled(userID).quickAnalysis
}

// ConsumeQuickAnalysis reports the flag and clears it.
func (t *Tracker) ConsumeQuickAnalysis(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.reconciled(userID)
	was := s.quickAnalysis
	s.quickAnalysis = false
	return was
}

// ClearSession drops every trace of the user's session, registration
// draft included. Used by the full account reset.
func (t *Tracker) ClearSession(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, userID)
}

// ResetResult reports the two independent effects of a manual daily reset.
type ResetResult struct {
	EphemeralCleared bool `json:"ephemeral_cleared"`
	PersistedCleared bool `json:"persisted_cleared"`
}

// ResetDaily clears the ephemeral daily state and deletes today's
// persisted records. The ephemeral effect cannot fail; the persisted one
// can, and a partial outcome is reported as such alongside the error. The
// last-reset date is invalidated so the next reconciliation re-triggers.
func (t *Tracker) ResetDaily(ctx context.Context, userID int64) (ResetResult, error) {
	t.mu.Lock()
	s := t.reconciled(userID)
	s.selected = make(map[models.MealType]bool)
	s.dailySum = 0
	s.lastResetDate = ""
	t.mu.Unlock()

	result := ResetResult{EphemeralCleared: true}
	if err := t.store.ResetDailyCalories(ctx, userID); err != nil {
		t.logger.Error("daily_reset_partial_failure",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return result, fmt.Errorf("failed to delete today's records: %w", err)
	}
	result.PersistedCleared = true

	t.logger.Info("daily_reset", zap.Int64("user_id", userID))
	return result, nil
}

// Session is a read-only snapshot of a user's reconciled daily state.
type Session struct {
	Date          string             `json:"date"`
	SelectedMeals []models.MealType  `json:"selected_meals"`
	DailySum      int                `json:"daily_sum"`
	QuickAnalysis bool               `json:"quick_analysis"`
	Registration  *RegistrationDraft `json:"registration,omitempty"`
}

// Snapshot returns the user's current session state.
func (t *Tracker) Snapshot(userID int64) Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.reconciled(userID)
	snap := Session{
		Date:          s.lastResetDate,
		SelectedMeals: selectedList(s),
		DailySum:      s.dailySum,
		QuickAnalysis: s.quickAnalysis,
	}
	if s.draft != nil {
		draft := *s.draft
		snap.Registration = &draft
	}
	return snap
}

// selectedList renders the selection set in menu order.
func selectedList(s *session) []models.MealType {
	meals := make([]models.MealType, 0, 3)
	for _, meal := range []models.MealType{models.MealTypeBreakfast, models.MealTypeLunch, models.MealTypeDinner} {
		if s.selected[meal] {
			meals = append(meals, meal)
		}
	}
	return meals
}
