package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/models"
)

type stubResetter struct {
	err   error
	calls int
}

func (s *stubResetter) ResetDailyCalories(ctx context.Context, userID int64) error {
	s.calls++
	return s.err
}

var _ DailyResetter = (*stubResetter)(nil)

// TestTracker_RolloverOnDateChange tests that crossing midnight clears the
// selected-meals set and zeroes the ephemeral sum on the next interaction.
func TestTracker_RolloverOnDateChange(t *testing.T) {
	t.Parallel()

	current := time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC)
	tr := New(&stubResetter{}, zap.NewNop(), WithNow(func() time.Time { return current }))

	tr.MarkMealSelected(1, models.MealTypeBreakfast)
	tr.MarkMealSelected(1, models.MealTypeDinner)
	tr.AddCalories(1, 850)

	snap := tr.Snapshot(1)
	if len(snap.SelectedMeals) != 2 || snap.DailySum != 850 {
		t.Fatalf("Expected 2 selected meals and sum 850 before midnight, got %+v", snap)
	}
	if snap.Date != "2026-03-14" {
		t.Errorf("Expected session date 2026-03-14, got %s", snap.Date)
	}

	current = current.Add(20 * time.Minute)

	snap = tr.Snapshot(1)
	if len(snap.SelectedMeals) != 0 {
		t.Errorf("Expected selected meals cleared after midnight, got %v", snap.SelectedMeals)
	}
	if snap.DailySum != 0 {
		t.Errorf("Expected ephemeral sum zeroed after midnight, got %d", snap.DailySum)
	}
	if snap.Date != "2026-03-15" {
		t.Errorf("Expected session date advanced to 2026-03-15, got %s", snap.Date)
	}
}

// TestTracker_ReconcileIdempotent tests that repeated reconciliation on
// the same date changes nothing.
func TestTracker_ReconcileIdempotent(t *testing.T) {
	t.Parallel()

	current := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tr := New(&stubResetter{}, zap.NewNop(), WithNow(func() time.Time { return current }))

	tr.MarkMealSelected(1, models.MealTypeLunch)
	tr.AddCalories(1, 400)
	before := tr.Snapshot(1)

	for i := 0; i < 5; i++ {
		tr.Reconcile(1)
	}

	after := tr.Snapshot(1)
	if after.Date != before.Date || after.DailySum != before.DailySum {
		t.Errorf("Expected no change from repeated reconciliation, before=%+v after=%+v", before, after)
	}
	if len(after.SelectedMeals) != 1 || after.SelectedMeals[0] != models.MealTypeLunch {
		t.Errorf("Expected lunch still selected, got %v", after.SelectedMeals)
	}
}

// TestTracker_MarkMealSelected tests the tracked-set semantics: snacks
// never enter the set, repeats are reported as not newly added.
func TestTracker_MarkMealSelected(t *testing.T) {
	t.Parallel()

	tr := New(&stubResetter{}, zap.NewNop())

	if !tr.MarkMealSelected(1, models.MealTypeBreakfast) {
		t.Error("Expected first breakfast mark to report newly added")
	}
	if tr.MarkMealSelected(1, models.MealTypeBreakfast) {
		t.Error("Expected second breakfast mark to report already selected")
	}
	if !tr.IsMealSelected(1, models.MealTypeBreakfast) {
		t.Error("Expected breakfast to be selected")
	}

	if tr.MarkMealSelected(1, models.MealTypeSnack) {
		t.Error("Expected snack to never be tracked")
	}
	if tr.IsMealSelected(1, models.MealTypeSnack) {
		t.Error("Expected snack to stay out of the selected set")
	}

	tr.MarkMealSelected(1, models.MealTypeDinner)
	meals := tr.SelectedMeals(1)
	want := []models.MealType{models.MealTypeBreakfast, models.MealTypeDinner}
	if len(meals) != len(want) {
		t.Fatalf("Expected %v, got %v", want, meals)
	}
	for i := range want {
		if meals[i] != want[i] {
			t.Errorf("Expected meals[%d]=%s, got %s", i, want[i], meals[i])
		}
	}

	// Sessions are per user.
	if tr.IsMealSelected(2, models.MealTypeBreakfast) {
		t.Error("Expected other user's set to be independent")
	}
}

// TestTracker_QuickAnalysisFlag tests the one-shot flag lifecycle and that
// it survives a rollover.
func TestTracker_QuickAnalysisFlag(t *testing.T) {
	t.Parallel()

	current := time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC)
	tr := New(&stubResetter{}, zap.NewNop(), WithNow(func() time.Time { return current }))

	if tr.QuickAnalysis(1) {
		t.Error("Expected flag unset initially")
	}

	tr.SetQuickAnalysis(1, true)
	if !tr.QuickAnalysis(1) {
		t.Error("Expected flag set after SetQuickAnalysis")
	}

	// Rollover does not touch the flag.
	current = current.Add(20 * time.Minute)
	if !tr.QuickAnalysis(1) {
		t.Error("Expected flag to survive the rollover")
	}

	if !tr.ConsumeQuickAnalysis(1) {
		t.Error("Expected consume to report the flag was set")
	}
	if tr.QuickAnalysis(1) {
		t.Error("Expected flag cleared after consume")
	}
	if tr.ConsumeQuickAnalysis(1) {
		t.Error("Expected second consume to report unset")
	}
}

// TestTracker_ResetDaily tests the two-effect manual reset.
func TestTracker_ResetDaily(t *testing.T) {
	t.Parallel()

	t.Run("both effects succeed", func(t *testing.T) {
		t.Parallel()

		stub := &stubResetter{}
		tr := New(stub, zap.NewNop())

		tr.MarkMealSelected(1, models.MealTypeLunch)
		tr.AddCalories(1, 600)

		result, err := tr.ResetDaily(context.Background(), 1)
		if err != nil {
			t.Fatalf("ResetDaily() error = %v", err)
		}
		if !result.EphemeralCleared || !result.PersistedCleared {
			t.Errorf("Expected both effects reported, got %+v", result)
		}
		if stub.calls != 1 {
			t.Errorf("Expected 1 store call, got %d", stub.calls)
		}

		snap := tr.Snapshot(1)
		if len(snap.SelectedMeals) != 0 || snap.DailySum != 0 {
			t.Errorf("Expected cleared session, got %+v", snap)
		}
	})

	t.Run("persisted deletion fails", func(t *testing.T) {
		t.Parallel()

		stub := &stubResetter{err: errors.New("disk is sad")}
		tr := New(stub, zap.NewNop())

		tr.MarkMealSelected(1, models.MealTypeLunch)
		tr.AddCalories(1, 600)

		result, err := tr.ResetDaily(context.Background(), 1)
		if err == nil {
			t.Fatal("Expected error from failing store, got nil")
		}
		if !result.EphemeralCleared {
			t.Error("Expected ephemeral effect reported even on store failure")
		}
		if result.PersistedCleared {
			t.Error("Expected persisted effect not reported on store failure")
		}

		// The ephemeral side is cleared regardless.
		snap := tr.Snapshot(1)
		if len(snap.SelectedMeals) != 0 || snap.DailySum != 0 {
			t.Errorf("Expected cleared session despite store failure, got %+v", snap)
		}
	})
}

// TestTracker_ClearSession tests the full-session wipe.
func TestTracker_ClearSession(t *testing.T) {
	t.Parallel()

	tr := New(&stubResetter{}, zap.NewNop())

	tr.MarkMealSelected(1, models.MealTypeBreakfast)
	tr.SetQuickAnalysis(1, true)
	tr.StartRegistration(1)

	tr.ClearSession(1)

	snap := tr.Snapshot(1)
	if len(snap.SelectedMeals) != 0 || snap.DailySum != 0 || snap.QuickAnalysis || snap.Registration != nil {
		t.Errorf("Expected pristine session after clear, got %+v", snap)
	}
}
