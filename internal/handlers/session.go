package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dkotenko/calobot/internal/tracker"
)

// SessionHandler exposes the reconciled per-user session state.
type SessionHandler struct {
	tracker *tracker.Tracker
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(t *tracker.Tracker) *SessionHandler {
	return &SessionHandler{tracker: t}
}

// RegisterRoutes registers session routes on the given router.
// The router should already have the /users prefix.
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/session", h.GetSession).Methods("GET")
	r.HandleFunc("/{id}/session/quick-analysis", h.SetQuickAnalysis).Methods("PUT")
}

// GetSession returns the user's session snapshot after the lazy daily
// rollover has been applied.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, h.tracker.Snapshot(userID))
}

// QuickAnalysisRequest is the body of PUT /users/{id}/session/quick-analysis.
type QuickAnalysisRequest struct {
	Enabled bool `json:"enabled"`
}

// SetQuickAnalysis toggles the one-shot quick-analysis flag. While set, the
// next analysis result is not meant to be recorded.
func (h *SessionHandler) SetQuickAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r)
	if !ok {
		return
	}

	var req QuickAnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.tracker.SetQuickAnalysis(userID, req.Enabled)
	respondJSON(w, http.StatusOK, QuickAnalysisRequest{Enabled: req.Enabled})
}
