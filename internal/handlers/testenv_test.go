package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/database"
	"github.com/dkotenko/calobot/internal/tracker"
)

// envelope mirrors the response wrapper for decoding in tests.
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	store, err := database.NewSQLiteStore(filepath.Join(t.TempDir(), "handlers.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func newTestTracker(t *testing.T, store database.Store) *tracker.Tracker {
	t.Helper()
	return tracker.New(store, zap.NewNop())
}

// newUserRouter wires every user-scoped handler the way the server does,
// so route variables and subrouter prefixes match production.
func newUserRouter(t *testing.T, store database.Store, trk *tracker.Tracker) *mux.Router {
	t.Helper()

	router := mux.NewRouter()
	users := router.PathPrefix("/api/v1/users").Subrouter()
	NewUserHandler(store, trk, zap.NewNop()).RegisterRoutes(users)
	NewMealHandler(store, trk, zap.NewNop()).RegisterRoutes(users)
	NewSessionHandler(trk).RegisterRoutes(users)
	NewRegistrationHandler(store, trk, zap.NewNop()).RegisterRoutes(users)

	targets := router.PathPrefix("/api/v1/targets").Subrouter()
	NewTargetHandler().RegisterRoutes(targets)

	return router
}

// doJSON performs a request with a JSON body and decodes the envelope.
func doJSON(t *testing.T, router *mux.Router, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("Failed to decode envelope from %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

// decodeData unmarshals the envelope's data field.
func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("Failed to decode data %q: %v", string(env.Data), err)
	}
}

// registeredUser stores a reference profile and returns its derived target.
func registeredUser(t *testing.T, router *mux.Router, userID string) int {
	t.Helper()

	w, env := doJSON(t, router, http.MethodPut, "/api/v1/users/"+userID, map[string]any{
		"username":       "tester",
		"name":           "Test User",
		"gender":         "male",
		"age":            25,
		"height":         180,
		"weight":         80,
		"activity_level": "sedentary",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to register user: status %d body %s", w.Code, w.Body.String())
	}

	var profile struct {
		DailyCalories int `json:"daily_calories"`
	}
	decodeData(t, env, &profile)
	return profile.DailyCalories
}
