package nutrition

import (
	"testing"

	"github.com/dkotenko/calobot/internal/models"
)

func TestDailyTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		gender   models.Gender
		age      int
		height   float64
		weight   float64
		activity models.ActivityLevel
		want     int
	}{
		{
			// int((10*80 + 6.25*180 - 5*25 + 5) * 1.2) = int(1805 * 1.2)
			name:     "male sedentary reference",
			gender:   models.GenderMale,
			age:      25,
			height:   180,
			weight:   80,
			activity: models.ActivitySedentary,
			want:     2166,
		},
		{
			// int((10*60 + 6.25*165 - 5*30 - 161) * 1.55) = int(1320.25 * 1.55)
			name:     "female moderate reference",
			gender:   models.GenderFemale,
			age:      30,
			height:   165,
			weight:   60,
			activity: models.ActivityModerate,
			want:     2046,
		},
		{
			// 1805 * 1.375 = 2481.875, truncated not rounded
			name:     "result truncated not rounded",
			gender:   models.GenderMale,
			age:      25,
			height:   180,
			weight:   80,
			activity: models.ActivityLight,
			want:     2481,
		},
		{
			name:     "unknown activity falls back to sedentary",
			gender:   models.GenderMale,
			age:      25,
			height:   180,
			weight:   80,
			activity: models.ActivityLevel("astronaut"),
			want:     2166,
		},
		{
			name:     "empty activity falls back to sedentary",
			gender:   models.GenderMale,
			age:      25,
			height:   180,
			weight:   80,
			activity: "",
			want:     2166,
		},
		{
			name:     "legacy activity spelling",
			gender:   models.GenderMale,
			age:      25,
			height:   180,
			weight:   80,
			activity: models.ActivityLevel("activity_sedentary"),
			want:     2166,
		},
		{
			name:     "very high multiplier",
			gender:   models.GenderMale,
			age:      25,
			height:   180,
			weight:   80,
			activity: models.ActivityVeryHigh,
			want:     3429, // int(1805 * 1.9) = int(3429.5)
		},
		{
			name:     "missing gender yields default",
			gender:   "",
			age:      25,
			height:   180,
			weight:   80,
			activity: models.ActivitySedentary,
			want:     DefaultDailyTarget,
		},
		{
			name:     "zero age yields default",
			gender:   models.GenderFemale,
			age:      0,
			height:   165,
			weight:   60,
			activity: models.ActivityModerate,
			want:     DefaultDailyTarget,
		},
		{
			name:     "negative weight yields default",
			gender:   models.GenderFemale,
			age:      30,
			height:   165,
			weight:   -60,
			activity: models.ActivityModerate,
			want:     DefaultDailyTarget,
		},
		{
			name:     "zero height yields default",
			gender:   models.GenderMale,
			age:      30,
			height:   0,
			weight:   80,
			activity: models.ActivityHigh,
			want:     DefaultDailyTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := DailyTarget(tt.gender, tt.age, tt.height, tt.weight, tt.activity)
			if got != tt.want {
				t.Errorf("DailyTarget(%q, %d, %v, %v, %q) = %d, want %d",
					tt.gender, tt.age, tt.height, tt.weight, tt.activity, got, tt.want)
			}
		})
	}
}

func TestTargetForProfile(t *testing.T) {
	t.Parallel()

	profile := &models.UserProfile{
		Gender:        models.GenderFemale,
		Age:           30,
		Height:        165,
		Weight:        60,
		ActivityLevel: models.ActivityModerate,
	}
	if got := TargetForProfile(profile); got != 2046 {
		t.Errorf("TargetForProfile = %d, want 2046", got)
	}

	if got := TargetForProfile(nil); got != DefaultDailyTarget {
		t.Errorf("TargetForProfile(nil) = %d, want %d", got, DefaultDailyTarget)
	}
}

func TestPercentOfTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		consumed int
		target   int
		want     int
	}{
		{name: "half", consumed: 1000, target: 2000, want: 50},
		{name: "over budget", consumed: 2500, target: 2000, want: 125},
		{name: "truncates", consumed: 999, target: 2000, want: 49},
		{name: "zero target", consumed: 500, target: 0, want: 0},
		{name: "nothing consumed", consumed: 0, target: 2000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := PercentOfTarget(tt.consumed, tt.target); got != tt.want {
				t.Errorf("PercentOfTarget(%d, %d) = %d, want %d", tt.consumed, tt.target, got, tt.want)
			}
		})
	}
}
