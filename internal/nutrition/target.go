package nutrition

import (
	"math"

	"github.com/dkotenko/calobot/internal/models"
)

// DefaultDailyTarget is returned when profile attributes cannot produce a
// meaningful value. The assistant keeps working with a generic budget
// instead of failing the interaction.
const DefaultDailyTarget = 2000

// activityMultipliers scales basal metabolic rate by habitual activity.
var activityMultipliers = map[models.ActivityLevel]float64{
	models.ActivitySedentary: 1.20,
	models.ActivityLight:     1.375,
	models.ActivityModerate:  1.55,
	models.ActivityHigh:      1.725,
	models.ActivityVeryHigh:  1.90,
}

// DailyTarget computes a daily calorie budget using the Mifflin-St Jeor
// formula, truncated to an integer. Unknown activity levels use the
// sedentary multiplier. Missing or non-numeric attributes yield
// DefaultDailyTarget; this function never fails.
func DailyTarget(gender models.Gender, age int, heightCm, weightKg float64, activity models.ActivityLevel) int {
	if age <= 0 || heightCm <= 0 || weightKg <= 0 {
		return DefaultDailyTarget
	}
	if math.IsNaN(heightCm) || math.IsInf(heightCm, 0) || math.IsNaN(weightKg) || math.IsInf(weightKg, 0) {
		return DefaultDailyTarget
	}

	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	switch gender {
	case models.GenderMale:
		bmr += 5
	case models.GenderFemale:
		bmr -= 161
	default:
		return DefaultDailyTarget
	}

	multiplier, ok := activityMultipliers[models.NormalizeActivityLevel(string(activity))]
	if !ok {
		multiplier = activityMultipliers[models.ActivitySedentary]
	}

	return int(bmr * multiplier)
}

// TargetForProfile recomputes the derived daily target from a profile's
// attributes.
func TargetForProfile(p *models.UserProfile) int {
	if p == nil {
		return DefaultDailyTarget
	}
	return DailyTarget(p.Gender, p.Age, p.Height, p.Weight, p.ActivityLevel)
}

// PercentOfTarget reports consumed calories as a whole percentage of the
// daily target. A non-positive target yields 0.
func PercentOfTarget(consumed, target int) int {
	if target <= 0 {
		return 0
	}
	return consumed * 100 / target
}
