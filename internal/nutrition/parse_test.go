package nutrition

import "testing"

func TestExtractCalories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		want   int
		wantOK bool
	}{
		{name: "plain number", text: "450", want: 450, wantOK: true},
		{name: "number inside sentence", text: "Estimated calories: 450 kcal", want: 450, wantOK: true},
		{name: "first run wins", text: "2 pancakes, roughly 350 kcal", want: 2, wantOK: true},
		{name: "range takes lower bound", text: "300-400 kcal depending on portion", want: 300, wantOK: true},
		{name: "digits at end", text: "this meal is about 620", want: 620, wantOK: true},
		{name: "leading zeros", text: "approximately 0050 kcal", want: 50, wantOK: true},
		{name: "no digits", text: "I cannot tell what this dish is.", wantOK: false},
		{name: "empty", text: "", wantOK: false},
		{name: "digit run overflows int", text: "99999999999999999999999999 kcal", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ExtractCalories(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractCalories(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ExtractCalories(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
