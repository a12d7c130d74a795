package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dkotenko/calobot/internal/models"
	"github.com/dkotenko/calobot/internal/nutrition"
	"github.com/dkotenko/calobot/internal/validation"
)

// TargetHandler previews the daily calorie target for a set of profile
// attributes without touching stored state.
type TargetHandler struct{}

// NewTargetHandler creates a target handler.
func NewTargetHandler() *TargetHandler {
	return &TargetHandler{}
}

// RegisterRoutes registers target routes on the given router.
// The router should already have the /targets prefix.
func (h *TargetHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/preview", h.Preview).Methods("POST")
}

// TargetPreviewRequest is the body of POST /targets/preview.
type TargetPreviewRequest struct {
	Gender        string  `json:"gender"`
	Age           int     `json:"age"`
	Height        float64 `json:"height"`
	Weight        float64 `json:"weight"`
	ActivityLevel string  `json:"activity_level"`
}

// TargetPreviewResponse carries the computed daily budget.
type TargetPreviewResponse struct {
	DailyCalories int `json:"daily_calories"`
}

// Preview computes the daily target for the given attributes.
func (h *TargetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req TargetPreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	gender := strings.ToLower(strings.TrimSpace(req.Gender))
	if err := validation.ValidateGender(gender); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.ValidateAge(req.Age); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.ValidateHeight(req.Height); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.ValidateWeight(req.Weight); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	// Unknown activity levels fall back to the sedentary multiplier rather
	// than failing the preview.
	target := nutrition.DailyTarget(
		models.Gender(gender),
		req.Age,
		req.Height,
		req.Weight,
		models.NormalizeActivityLevel(req.ActivityLevel),
	)

	respondJSON(w, http.StatusOK, TargetPreviewResponse{DailyCalories: target})
}
