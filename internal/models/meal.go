package models

import "time"

// MealSource tags where a meal record came from.
type MealSource string

const (
	MealSourcePhoto MealSource = "photo"
	MealSourceText  MealSource = "text"
	MealSourceVoice MealSource = "voice"
	MealSourceOther MealSource = "other"
)

// ParseMealSource maps arbitrary input onto the fixed source vocabulary.
// Unrecognized values become MealSourceOther.
func ParseMealSource(raw string) MealSource {
	switch MealSource(raw) {
	case MealSourcePhoto, MealSourceText, MealSourceVoice:
		return MealSource(raw)
	}
	return MealSourceOther
}

// MealType is the per-day meal slot. Breakfast, lunch and dinner can be
// logged once per day; snacks are unlimited.
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
)

// Tracked reports whether the meal type participates in the once-per-day
// selection set. Snacks never do.
func (m MealType) Tracked() bool {
	switch m {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner:
		return true
	}
	return false
}

// MealRecord is one recorded meal. Calories is always a positive integer;
// rows violating that are swept by the startup cleanup.
type MealRecord struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	FoodName  string     `json:"food_name"`
	Calories  int        `json:"calories"`
	Source    MealSource `json:"source"`
	CreatedAt time.Time  `json:"created_at"`
}

// DayBreakdown is one calendar day's slice of a weekly summary.
type DayBreakdown struct {
	Date     string `json:"date"`
	Calories int    `json:"calories"`
	Meals    int    `json:"meals"`
}

// WeeklySummary aggregates the trailing seven days of meal records.
type WeeklySummary struct {
	Days        []DayBreakdown `json:"days"`
	TotalWeekly int            `json:"total_weekly"`
	DaysCount   int            `json:"days_count"`
}
