package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/database"
	"github.com/dkotenko/calobot/internal/models"
	"github.com/dkotenko/calobot/internal/nutrition"
	"github.com/dkotenko/calobot/internal/tracker"
	"github.com/dkotenko/calobot/internal/validation"
)

const (
	// MaxHistoryLimit bounds how many records one history query returns.
	MaxHistoryLimit = 500

	periodDateLayout = "2006-01-02"
)

// MealHandler handles meal recording, history and the daily totals.
type MealHandler struct {
	store   database.Store
	tracker *tracker.Tracker
	logger  *zap.Logger
}

// NewMealHandler creates a meal handler.
func NewMealHandler(store database.Store, t *tracker.Tracker, logger *zap.Logger) *MealHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MealHandler{store: store, tracker: t, logger: logger}
}

// RegisterRoutes registers meal routes on the given router.
// The router should already have the /users prefix.
func (h *MealHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/meals", h.RecordMeal).Methods("POST")
	r.HandleFunc("/{id}/meals", h.GetHistory).Methods("GET")
	r.HandleFunc("/{id}/summary/daily", h.DailySummary).Methods("GET")
	r.HandleFunc("/{id}/summary/weekly", h.WeeklySummary).Methods("GET")
	r.HandleFunc("/{id}/reset/daily", h.ResetDaily).Methods("POST")
}

// RecordMealRequest is the body of POST /users/{id}/meals. Source maps onto
// the fixed vocabulary with unknown values becoming "other"; meal_type is
// optional and only feeds the once-per-day selection set.
type RecordMealRequest struct {
	Label    string `json:"label" validate:"required"`
	Calories int    `json:"calories" validate:"min=1,max=50000"`
	Source   string `json:"source"`
	MealType string `json:"meal_type,omitempty" validate:"omitempty,meal_type"`
}

// RecordMealResponse reports the stored record together with the refreshed
// daily aggregates the controller renders after every meal.
type RecordMealResponse struct {
	FoodName        string            `json:"food_name"`
	Calories        int               `json:"calories"`
	Source          models.MealSource `json:"source"`
	DailySum        int               `json:"daily_sum"`
	Target          int               `json:"target"`
	PercentOfTarget int               `json:"percent_of_target"`
	SelectedToday   []models.MealType `json:"selected_today"`
}

// RecordMeal stores one meal and answers with the updated daily picture.
func (h *MealHandler) RecordMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	var req RecordMealRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request",
				fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	label := validation.SanitizeText(req.Label)
	if label == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Label is required")
		return
	}

	mealType := models.MealType(req.MealType)

	ctx := r.Context()
	h.tracker.Reconcile(userID)

	source := models.ParseMealSource(req.Source)
	if err := h.store.AddMealRecord(ctx, userID, label, req.Calories, string(source)); err != nil {
		h.logger.Error("meal_record_failed", zap.Int64("user_id", userID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record meal")
		return
	}

	if mealType != "" {
		h.tracker.MarkMealSelected(userID, mealType)
	}
	h.tracker.AddCalories(userID, req.Calories)

	dailySum, err := h.store.GetDailyCalorieSum(ctx, userID)
	if err != nil {
		h.logger.Error("daily_sum_failed", zap.Int64("user_id", userID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to read daily total")
		return
	}

	target := h.dailyTarget(r, userID)
	respondJSON(w, http.StatusCreated, RecordMealResponse{
		FoodName:        database.TruncateFoodName(label),
		Calories:        req.Calories,
		Source:          source,
		DailySum:        dailySum,
		Target:          target,
		PercentOfTarget: nutrition.PercentOfTarget(dailySum, target),
		SelectedToday:   h.tracker.SelectedMeals(userID),
	})
}

// HistoryResponse is the body of GET /users/{id}/meals.
type HistoryResponse struct {
	Meals []models.MealRecord `json:"meals"`
	Count int                 `json:"count"`
}

// GetHistory returns recent meals, either the latest N (?limit=) or a
// calendar-date range (?start=&end=, inclusive).
func (h *MealHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	query := r.URL.Query()

	var (
		meals []models.MealRecord
		err   error
	)
	start, end := query.Get("start"), query.Get("end")
	switch {
	case start != "" || end != "":
		if start == "" || end == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Both start and end are required for a period query")
			return
		}
		startDate, perr := time.Parse(periodDateLayout, start)
		if perr != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "start must be formatted YYYY-MM-DD")
			return
		}
		endDate, perr := time.Parse(periodDateLayout, end)
		if perr != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "end must be formatted YYYY-MM-DD")
			return
		}
		if endDate.Before(startDate) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "end must not precede start")
			return
		}
		meals, err = h.store.GetMealHistoryByPeriod(ctx, userID, startDate, endDate)

	default:
		limit := database.DefaultHistoryLimit
		if raw := query.Get("limit"); raw != "" {
			parsed, perr := strconv.Atoi(raw)
			if perr != nil || parsed <= 0 {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", "limit must be a positive integer")
				return
			}
			if parsed > MaxHistoryLimit {
				parsed = MaxHistoryLimit
			}
			limit = parsed
		}
		meals, err = h.store.GetMealHistory(ctx, userID, limit)
	}

	if err != nil {
		h.logger.Error("meal_history_failed", zap.Int64("user_id", userID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to read meal history")
		return
	}

	if meals == nil {
		meals = []models.MealRecord{}
	}
	respondJSON(w, http.StatusOK, HistoryResponse{Meals: meals, Count: len(meals)})
}

// DailySummaryResponse is the body of GET /users/{id}/summary/daily.
type DailySummaryResponse struct {
	Date            string            `json:"date"`
	DailySum        int               `json:"daily_sum"`
	Target          int               `json:"target"`
	PercentOfTarget int               `json:"percent_of_target"`
	SelectedToday   []models.MealType `json:"selected_today"`
}

// DailySummary reports today's consumed calories against the target.
func (h *MealHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	h.tracker.Reconcile(userID)

	dailySum, err := h.store.GetDailyCalorieSum(ctx, userID)
	if err != nil {
		h.logger.Error("daily_sum_failed", zap.Int64("user_id", userID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to read daily total")
		return
	}

	target := h.dailyTarget(r, userID)
	respondJSON(w, http.StatusOK, DailySummaryResponse{
		Date:            time.Now().Format(periodDateLayout),
		DailySum:        dailySum,
		Target:          target,
		PercentOfTarget: nutrition.PercentOfTarget(dailySum, target),
		SelectedToday:   h.tracker.SelectedMeals(userID),
	})
}

// WeeklySummary reports the trailing seven days.
func (h *MealHandler) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	summary, err := h.store.GetWeeklySummary(r.Context(), userID)
	if err != nil {
		h.logger.Error("weekly_summary_failed", zap.Int64("user_id", userID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to read weekly summary")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// ResetDaily clears today's state. The ephemeral and persisted effects are
// independent; a partial outcome is reported as such.
func (h *MealHandler) ResetDaily(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	result, err := h.tracker.ResetDaily(r.Context(), userID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error",
			"Daily reset incomplete: session state cleared, stored records not deleted")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// dailyTarget reads the user's stored target, falling back to the generic
// budget for unregistered users.
func (h *MealHandler) dailyTarget(r *http.Request, userID int64) int {
	profile, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Warn("target_lookup_failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return nutrition.DefaultDailyTarget
	}
	if profile.DailyCalories <= 0 {
		return nutrition.DefaultDailyTarget
	}
	return profile.DailyCalories
}
