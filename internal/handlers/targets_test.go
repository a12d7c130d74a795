package handlers

import (
	"net/http"
	"testing"
)

func TestTargetHandlerPreview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			name: "male sedentary reference",
			body: map[string]any{
				"gender":         "male",
				"age":            25,
				"height":         180,
				"weight":         80,
				"activity_level": "sedentary",
			},
			want: 2166,
		},
		{
			name: "female moderate reference",
			body: map[string]any{
				"gender":         "female",
				"age":            30,
				"height":         165,
				"weight":         60,
				"activity_level": "moderate",
			},
			want: 2046,
		},
		{
			name: "unknown activity falls back to sedentary",
			body: map[string]any{
				"gender":         "male",
				"age":            25,
				"height":         180,
				"weight":         80,
				"activity_level": "astronaut",
			},
			want: 2166,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newTestStore(t)
			router := newUserRouter(t, store, newTestTracker(t, store))

			w, env := doJSON(t, router, http.MethodPost, "/api/v1/targets/preview", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
			}

			var resp TargetPreviewResponse
			decodeData(t, env, &resp)
			if resp.DailyCalories != tt.want {
				t.Errorf("Expected daily_calories %d, got %d", tt.want, resp.DailyCalories)
			}
		})
	}
}

func TestTargetHandlerPreviewValidation(t *testing.T) {
	t.Parallel()

	valid := map[string]any{
		"gender":         "male",
		"age":            25,
		"height":         180,
		"weight":         80,
		"activity_level": "sedentary",
	}

	tests := []struct {
		name  string
		field string
		value any
	}{
		{"unknown gender", "gender", "robot"},
		{"age out of range", "age", 5},
		{"height out of range", "height", 260},
		{"weight out of range", "weight", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newTestStore(t)
			router := newUserRouter(t, store, newTestTracker(t, store))

			body := make(map[string]any, len(valid))
			for k, v := range valid {
				body[k] = v
			}
			body[tt.field] = tt.value

			w, _ := doJSON(t, router, http.MethodPost, "/api/v1/targets/preview", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}
