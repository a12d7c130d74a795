package handlers

import (
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/services/estimator"
	"github.com/dkotenko/calobot/internal/tracker"
	"github.com/dkotenko/calobot/internal/validation"
)

// MaxDescriptionLength caps the free-text meal description sent to the
// oracle.
const MaxDescriptionLength = 1000

// AnalysisHandler exposes the calorie estimation operations. Estimation is
// stateless; the optional user id only lets the handler consume the
// caller's one-shot quick-analysis flag so the controller knows whether to
// record the result.
type AnalysisHandler struct {
	service *estimator.Service
	tracker *tracker.Tracker
	logger  *zap.Logger
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(service *estimator.Service, t *tracker.Tracker, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{service: service, tracker: t, logger: logger}
}

// RegisterRoutes registers analysis routes on the given router.
// The router should already have the /analysis prefix.
func (h *AnalysisHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/image", h.AnalyzeImage).Methods("POST")
	r.HandleFunc("/text", h.AnalyzeText).Methods("POST")
}

// AnalyzeTextRequest is the body of POST /analysis/text.
type AnalyzeTextRequest struct {
	Text   string `json:"text"`
	UserID int64  `json:"user_id,omitempty"`
}

// AnalyzeImageRequest is the JSON form of POST /analysis/image. The same
// endpoint also accepts a multipart upload with an "image" file part.
type AnalyzeImageRequest struct {
	ImageBase64 string `json:"image_base64"`
	UserID      int64  `json:"user_id,omitempty"`
}

// AnalysisResponse is an estimation result plus the consumed quick-analysis
// flag.
type AnalysisResponse struct {
	estimator.Analysis
	QuickAnalysis bool `json:"quick_analysis"`
}

// AnalyzeText estimates calories for a textual meal description.
func (h *AnalysisHandler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	text := validation.SanitizeText(req.Text)
	if text == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Text is required")
		return
	}
	if len([]rune(text)) > MaxDescriptionLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Text exceeds maximum length")
		return
	}

	analysis := h.service.AnalyzeText(r.Context(), text)
	respondJSON(w, http.StatusOK, AnalysisResponse{
		Analysis:      analysis,
		QuickAnalysis: h.consumeQuickAnalysis(req.UserID),
	})
}

// AnalyzeImage estimates calories for a meal photo, supplied either as a
// multipart "image" part or as base64 inside a JSON body.
func (h *AnalysisHandler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	image, userID, ok := h.imagePayload(w, r)
	if !ok {
		return
	}
	if len(image) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Image is required")
		return
	}

	analysis := h.service.AnalyzeImage(r.Context(), image)
	respondJSON(w, http.StatusOK, AnalysisResponse{
		Analysis:      analysis,
		QuickAnalysis: h.consumeQuickAnalysis(userID),
	})
}

// imagePayload extracts the raw image bytes and optional user id from
// either request form. Returns ok=false when a response was already
// written.
func (h *AnalysisHandler) imagePayload(w http.ResponseWriter, r *http.Request) ([]byte, int64, bool) {
	contentType := strings.ToLower(r.Header.Get("Content-Type"))

	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("image")
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Multipart body must carry an 'image' file part")
			return nil, 0, false
		}
		defer func() {
			_ = file.Close()
		}()

		image, err := io.ReadAll(file)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Failed to read image upload")
			return nil, 0, false
		}

		var userID int64
		if raw := r.FormValue("user_id"); raw != "" {
			userID, _ = strconv.ParseInt(raw, 10, 64)
		}
		return image, userID, true
	}

	var req AnalyzeImageRequest
	if !decodeJSON(w, r, &req) {
		return nil, 0, false
	}
	if req.ImageBase64 == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "image_base64 is required")
		return nil, 0, false
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "image_base64 is not valid base64")
		return nil, 0, false
	}
	return image, req.UserID, true
}

// consumeQuickAnalysis reads and clears the one-shot flag when a user id
// was supplied.
func (h *AnalysisHandler) consumeQuickAnalysis(userID int64) bool {
	if userID <= 0 || h.tracker == nil {
		return false
	}
	return h.tracker.ConsumeQuickAnalysis(userID)
}
