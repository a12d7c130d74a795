package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitRejectsInvalidRate(t *testing.T) {
	t.Parallel()

	if _, err := RateLimit("not-a-rate", ""); err == nil {
		t.Error("Expected error for invalid rate format")
	}
}

func TestRateLimitEnforcesPerClientLimit(t *testing.T) {
	t.Parallel()

	middleware, err := RateLimit("2-M", "")
	if err != nil {
		t.Fatalf("Failed to create rate limiter: %v", err)
	}

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest("POST", "/analysis/text", nil)
		req.Header.Set("X-Real-IP", ip)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("Expected request %d to pass, got %d", i+1, code)
		}
	}

	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 after limit, got %d", code)
	}

	// The limit is keyed per client, so another IP still passes.
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("Expected different client to pass, got %d", code)
	}
}

func TestRateLimitDefaultsRate(t *testing.T) {
	t.Parallel()

	middleware, err := RateLimit("", "")
	if err != nil {
		t.Fatalf("Expected default rate to apply, got error: %v", err)
	}

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/analysis/text", nil)
	req.Header.Set("X-Real-IP", "10.0.0.3")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if limit := w.Header().Get("X-RateLimit-Limit"); limit != "5" {
		t.Errorf("Expected X-RateLimit-Limit 5, got %q", limit)
	}
}
