package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/database"
	"github.com/dkotenko/calobot/internal/nutrition"
	"github.com/dkotenko/calobot/internal/tracker"
)

// RegistrationHandler drives the step-by-step profile registration. Drafts
// live in the session registry; a completed draft is materialized into a
// stored profile with a freshly derived daily target.
type RegistrationHandler struct {
	store   database.Store
	tracker *tracker.Tracker
	logger  *zap.Logger
}

// NewRegistrationHandler creates a registration handler.
func NewRegistrationHandler(store database.Store, t *tracker.Tracker, logger *zap.Logger) *RegistrationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationHandler{store: store, tracker: t, logger: logger}
}

// RegisterRoutes registers registration routes on the given router.
// The router should already have the /users prefix.
func (h *RegistrationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/registration", h.GetDraft).Methods("GET")
	r.HandleFunc("/{id}/registration", h.Advance).Methods("PUT")
	r.HandleFunc("/{id}/registration", h.Cancel).Methods("DELETE")
}

// GetDraft returns the in-progress draft.
func (h *RegistrationHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	draft, ok := h.tracker.Registration(userID)
	if !ok {
		respondJSONError(w, http.StatusNotFound, "Not Found", "No registration in progress")
		return
	}

	respondJSON(w, http.StatusOK, draft)
}

// AdvanceRequest is the body of PUT /users/{id}/registration. An empty
// input (re)starts the draft; a non-empty input answers the current step.
type AdvanceRequest struct {
	Input    string `json:"input"`
	Username string `json:"username,omitempty"`
}

// AdvanceResponse reports the draft state after the step, plus the stored
// profile once the final step completes it.
type AdvanceResponse struct {
	Registration tracker.RegistrationDraft `json:"registration"`
	Profile      any                       `json:"profile,omitempty"`
}

// Advance starts the draft or submits one step's answer. A completed draft
// is saved as the user's profile and removed from the session.
func (h *RegistrationHandler) Advance(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	var req AdvanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, inProgress := h.tracker.Registration(userID); !inProgress {
		draft := h.tracker.StartRegistration(userID)
		if req.Input == "" {
			respondJSON(w, http.StatusOK, AdvanceResponse{Registration: draft})
			return
		}
	} else if req.Input == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Input is required for the current step")
		return
	}

	draft, err := h.tracker.AdvanceRegistration(userID, req.Input)
	if err != nil {
		if errors.Is(err, tracker.ErrRegistrationComplete) {
			respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
			return
		}
		// Validation failure: the draft stays on the same step.
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if !draft.Complete() {
		respondJSON(w, http.StatusOK, AdvanceResponse{Registration: draft})
		return
	}

	profile := draft.Profile(userID, req.Username)
	profile.DailyCalories = nutrition.TargetForProfile(profile)

	if err := h.store.UpsertUser(r.Context(), profile); err != nil {
		h.logger.Error("registration_save_failed", zap.Int64("user_id", userID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save completed registration")
		return
	}
	h.tracker.CancelRegistration(userID)

	h.logger.Info("registration_completed",
		zap.Int64("user_id", userID),
		zap.Int("daily_calories", profile.DailyCalories),
	)
	respondJSON(w, http.StatusOK, AdvanceResponse{Registration: draft, Profile: profile})
}

// Cancel discards the in-progress draft.
func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	h.tracker.CancelRegistration(userID)
	w.WriteHeader(http.StatusNoContent)
}
