package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/config"
)

func newTestProvider(t *testing.T, baseURL string, timeout time.Duration) *NebiusProvider {
	t.Helper()

	cfg := &config.Config{
		NebiusAPIKey:     "test-key",
		NebiusBaseURL:    baseURL,
		NebiusModel:      "test-model",
		EstimatorTimeout: timeout,
	}
	return NewNebiusProvider(cfg, zap.NewNop())
}

func completionJSON(content string) string {
	return `{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":` + strconv.Quote(content) + `}}]}`
}

func TestNebiusProvider_AnalyzeText(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Expected bearer auth header, got %q", auth)
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read request body: %v", err)
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON(" 250 "))
	}))
	defer srv.Close()

	provider := newTestProvider(t, srv.URL+"/", 5*time.Second)

	got, err := provider.AnalyzeText(context.Background(), "греческий салат")
	if err != nil {
		t.Fatalf("AnalyzeText returned error: %v", err)
	}
	if got != "250" {
		t.Errorf("Expected trimmed reply \"250\", got %q", got)
	}

	if body["model"] != "test-model" {
		t.Errorf("Expected model test-model, got %v", body["model"])
	}
	if body["max_tokens"] != float64(maxCompletionTokens) {
		t.Errorf("Expected max_tokens %d, got %v", maxCompletionTokens, body["max_tokens"])
	}
	if body["temperature"] != completionTemperature {
		t.Errorf("Expected temperature %v, got %v", completionTemperature, body["temperature"])
	}

	messages, ok := body["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("Expected 1 message in request, got %v", body["messages"])
	}
	message, ok := messages[0].(map[string]any)
	if !ok {
		t.Fatalf("Expected message object, got %T", messages[0])
	}
	content, ok := message["content"].(string)
	if !ok {
		t.Fatalf("Expected string content, got %T", message["content"])
	}
	if !strings.Contains(content, "греческий салат") {
		t.Errorf("Expected prompt to embed the description, got %q", content)
	}
}

func TestNebiusProvider_AnalyzeImage(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read request body: %v", err)
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON("600"))
	}))
	defer srv.Close()

	provider := newTestProvider(t, srv.URL+"/", 5*time.Second)

	got, err := provider.AnalyzeImage(context.Background(), []byte("prepared-jpeg-bytes"))
	if err != nil {
		t.Fatalf("AnalyzeImage returned error: %v", err)
	}
	if got != "600" {
		t.Errorf("Expected reply \"600\", got %q", got)
	}

	messages, ok := body["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("Expected 1 message in request, got %v", body["messages"])
	}
	message, ok := messages[0].(map[string]any)
	if !ok {
		t.Fatalf("Expected message object, got %T", messages[0])
	}
	parts, ok := message["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("Expected 2 content parts, got %v", message["content"])
	}

	textPart, ok := parts[0].(map[string]any)
	if !ok || textPart["type"] != "text" {
		t.Errorf("Expected first part to be text, got %v", parts[0])
	}
	imagePart, ok := parts[1].(map[string]any)
	if !ok || imagePart["type"] != "image_url" {
		t.Fatalf("Expected second part to be image_url, got %v", parts[1])
	}
	imageURL, ok := imagePart["image_url"].(map[string]any)
	if !ok {
		t.Fatalf("Expected image_url object, got %T", imagePart["image_url"])
	}
	url, ok := imageURL["url"].(string)
	if !ok || !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("Expected base64 JPEG data URL, got %v", imageURL["url"])
	}
}

func TestNebiusProvider_FailureClasses(t *testing.T) {
	t.Parallel()

	t.Run("upstream rejection maps to api fallback", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"model overloaded"}}`, http.StatusInternalServerError)
		}))
		defer srv.Close()

		provider := newTestProvider(t, srv.URL+"/", 5*time.Second)
		_, err := provider.AnalyzeText(context.Background(), "плов")
		if err == nil {
			t.Fatal("Expected error for 500 response, got nil")
		}
		if got := textFallback(err); got != fallbackTextAPI {
			t.Errorf("Expected api fallback %q, got %q", fallbackTextAPI, got)
		}
		if got := imageFallback(err); got != fallbackImageAPI {
			t.Errorf("Expected api fallback %q, got %q", fallbackImageAPI, got)
		}
	})

	t.Run("stalled upstream maps to timeout fallback", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(250 * time.Millisecond)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, completionJSON("100"))
		}))
		defer srv.Close()

		provider := newTestProvider(t, srv.URL+"/", 50*time.Millisecond)
		_, err := provider.AnalyzeText(context.Background(), "плов")
		if err == nil {
			t.Fatal("Expected timeout error, got nil")
		}
		if got := textFallback(err); got != fallbackTimeout {
			t.Errorf("Expected timeout fallback %q, got %q", fallbackTimeout, got)
		}
	})

	t.Run("unreachable upstream maps to connection fallback", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		baseURL := srv.URL + "/"
		srv.Close()

		provider := newTestProvider(t, baseURL, time.Second)
		_, err := provider.AnalyzeText(context.Background(), "плов")
		if err == nil {
			t.Fatal("Expected connection error, got nil")
		}
		if got := textFallback(err); got != fallbackConnection {
			t.Errorf("Expected connection fallback %q, got %q", fallbackConnection, got)
		}
	})

	t.Run("empty choices maps to bad response fallback", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"cmpl-1","object":"chat.completion","choices":[]}`)
		}))
		defer srv.Close()

		provider := newTestProvider(t, srv.URL+"/", 5*time.Second)
		_, err := provider.AnalyzeText(context.Background(), "плов")
		if err == nil {
			t.Fatal("Expected error for empty choices, got nil")
		}
		if got := textFallback(err); got != fallbackBadResponse {
			t.Errorf("Expected bad response fallback %q, got %q", fallbackBadResponse, got)
		}
	})
}
