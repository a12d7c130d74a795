package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/dkotenko/calobot/internal/database"
)

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSON(w, http.StatusCreated, map[string]int{"value": 7})

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %q", ct)
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if !env.Success {
		t.Error("Expected success true")
	}
	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Errorf("Expected RFC3339 timestamp, got %q", env.Timestamp)
	}

	var data map[string]int
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if data["value"] != 7 {
		t.Errorf("Expected data value 7, got %d", data["value"])
	}
}

func TestRespondJSONError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSONError(w, http.StatusBadRequest, "Bad Request", "age out of range")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if env.Success {
		t.Error("Expected success false")
	}
	if env.Error != "Bad Request" {
		t.Errorf("Expected error 'Bad Request', got %q", env.Error)
	}
	if env.Message != "age out of range" {
		t.Errorf("Expected message preserved, got %q", env.Message)
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	t.Parallel()

	short := "fits"
	if got := sanitizeErrorMessage(short); got != short {
		t.Errorf("Expected short message unchanged, got %q", got)
	}

	long := strings.Repeat("x", 300)
	got := sanitizeErrorMessage(long)
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("Expected 200 chars plus ellipsis, got %d chars", len(got))
	}
}

func TestUserIDFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		id     string
		wantID int64
		wantOK bool
	}{
		{"valid id", "42", 42, true},
		{"large id", "9007199254740993", 9007199254740993, true},
		{"non-numeric", "abc", 0, false},
		{"negative", "-3", 0, false},
		{"zero", "0", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/users/"+tt.id, nil)
			req = mux.SetURLVars(req, map[string]string{"id": tt.id})
			w := httptest.NewRecorder()

			id, ok := userIDFromPath(w, req)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok %v, got %v", tt.wantOK, ok)
			}
			if id != tt.wantID {
				t.Errorf("Expected id %d, got %d", tt.wantID, id)
			}
			if !tt.wantOK && w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400 written, got %d", w.Code)
			}
		})
	}
}

func TestRespondStoreError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondStoreError(w, database.ErrNotFound, "User not found")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for ErrNotFound, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	respondStoreError(w, errors.New("disk full"), "User not found")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500 for unknown error, got %d", w.Code)
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if strings.Contains(env.Message, "disk full") {
		t.Error("Expected internal detail kept out of the response")
	}
}

func TestRespondStoreErrorWrapped(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	wrapped := errors.Join(errors.New("query user 42"), database.ErrNotFound)
	respondStoreError(w, wrapped, "User not found")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for wrapped ErrNotFound, got %d", w.Code)
	}
}
