package models

import (
	"strings"
	"time"
)

// Gender feeds the basal metabolic rate formula.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ActivityLevel buckets a user's habitual activity for the daily target
// multiplier.
type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "light"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityHigh      ActivityLevel = "high"
	ActivityVeryHigh  ActivityLevel = "very_high"
)

// UserProfile is a registered user's profile. DailyCalories is derived
// from the other attributes and recomputed on every profile write.
type UserProfile struct {
	UserID        int64         `json:"user_id"`
	Username      string        `json:"username"`
	Name          string        `json:"name"`
	Gender        Gender        `json:"gender"`
	Age           int           `json:"age"`
	Height        float64       `json:"height"`
	Weight        float64       `json:"weight"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	DailyCalories int           `json:"daily_calories"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NormalizeActivityLevel maps stored activity values, including spellings
// from earlier schema generations ("activity_moderate", "very high"), onto
// the canonical enum. Returns "" when the value is not recognizable; the
// target formula treats unknown levels as sedentary either way.
func NormalizeActivityLevel(raw string) ActivityLevel {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "activity_")
	s = strings.ReplaceAll(s, " ", "_")

	switch ActivityLevel(s) {
	case ActivitySedentary, ActivityLight, ActivityModerate, ActivityHigh, ActivityVeryHigh:
		return ActivityLevel(s)
	}
	return ""
}
