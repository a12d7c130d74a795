package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/database"
	"github.com/dkotenko/calobot/internal/models"
	"github.com/dkotenko/calobot/internal/nutrition"
	"github.com/dkotenko/calobot/internal/tracker"
	"github.com/dkotenko/calobot/internal/validation"
)

// UserHandler handles profile reads, writes and the full account reset.
type UserHandler struct {
	store   database.Store
	tracker *tracker.Tracker
	logger  *zap.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(store database.Store, t *tracker.Tracker, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{store: store, tracker: t, logger: logger}
}

// RegisterRoutes registers user routes on the given router.
// The router should already have the /users prefix.
func (h *UserHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}", h.UpsertUser).Methods("PUT")
	r.HandleFunc("/{id}", h.GetUser).Methods("GET")
	r.HandleFunc("/{id}", h.ResetAll).Methods("DELETE")
}

// UpsertUserRequest is the profile body of PUT /users/{id}. The daily
// calorie target is never accepted from the caller; it is derived from the
// attributes on every write.
type UpsertUserRequest struct {
	Username      string  `json:"username"`
	Name          string  `json:"name"`
	Gender        string  `json:"gender"`
	Age           int     `json:"age"`
	Height        float64 `json:"height"`
	Weight        float64 `json:"weight"`
	ActivityLevel string  `json:"activity_level"`
}

// UpsertUser creates or replaces a profile and recomputes its daily target.
func (h *UserHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	var req UpsertUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := profileFromRequest(userID, &req)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	profile.DailyCalories = nutrition.TargetForProfile(profile)

	ctx := r.Context()
	if err := h.store.UpsertUser(ctx, profile); err != nil {
		h.logger.Error("user_upsert_failed", zap.Int64("user_id", userID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save profile")
		return
	}

	stored, err := h.store.GetUser(ctx, userID)
	if err != nil {
		// The write succeeded; fall back to what we wrote.
		stored = profile
	}

	respondJSON(w, http.StatusOK, stored)
}

// GetUser returns a stored profile.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	profile, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// ResetAll irreversibly deletes the profile, every meal record, and the
// in-memory session.
func (h *UserHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.store.ResetAllUserData(r.Context(), userID); err != nil && !errors.Is(err, database.ErrNotFound) {
		h.logger.Error("user_reset_failed", zap.Int64("user_id", userID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to reset user data")
		return
	}
	h.tracker.ClearSession(userID)

	h.logger.Info("user_reset", zap.Int64("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}

// profileFromRequest validates and normalizes a profile body.
func profileFromRequest(userID int64, req *UpsertUserRequest) (*models.UserProfile, error) {
	name := validation.SanitizeText(req.Name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	gender := strings.ToLower(strings.TrimSpace(req.Gender))
	if err := validation.ValidateGender(gender); err != nil {
		return nil, err
	}

	if err := validation.ValidateAge(req.Age); err != nil {
		return nil, err
	}
	if err := validation.ValidateHeight(req.Height); err != nil {
		return nil, err
	}
	if err := validation.ValidateWeight(req.Weight); err != nil {
		return nil, err
	}

	activity := models.NormalizeActivityLevel(req.ActivityLevel)
	if err := validation.ValidateActivityLevel(string(activity)); err != nil {
		return nil, err
	}

	return &models.UserProfile{
		UserID:        userID,
		Username:      validation.SanitizeText(req.Username),
		Name:          name,
		Gender:        models.Gender(gender),
		Age:           req.Age,
		Height:        req.Height,
		Weight:        req.Weight,
		ActivityLevel: activity,
	}, nil
}
