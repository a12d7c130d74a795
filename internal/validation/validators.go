package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/dkotenko/calobot/internal/models"
)

// Profile attribute limits. Values outside these ranges are rejected at
// every entry point (registration steps and the facade alike).
const (
	MinAge        = 10
	MaxAge        = 120
	MinHeightCm   = 100
	MaxHeightCm   = 250
	MinWeightKg   = 30
	MaxWeightKg   = 300
	MinNameLength = 2
	MaxNameLength = 50
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("gender", validateGender); err != nil {
		panic(fmt.Sprintf("failed to register gender validator: %v", err))
	}
	if err := Validate.RegisterValidation("activity_level", validateActivityLevel); err != nil {
		panic(fmt.Sprintf("failed to register activity_level validator: %v", err))
	}
	if err := Validate.RegisterValidation("meal_source", validateMealSource); err != nil {
		panic(fmt.Sprintf("failed to register meal_source validator: %v", err))
	}
	if err := Validate.RegisterValidation("meal_type", validateMealType); err != nil {
		panic(fmt.Sprintf("failed to register meal_type validator: %v", err))
	}
}

// validateGender validates that a string is a valid Gender enum value
func validateGender(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.Gender(value) {
	case models.GenderMale, models.GenderFemale:
		return true
	default:
		return false
	}
}

// validateActivityLevel validates that a string is a valid ActivityLevel enum value
func validateActivityLevel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.ActivityLevel(value) {
	case models.ActivitySedentary, models.ActivityLight, models.ActivityModerate, models.ActivityHigh, models.ActivityVeryHigh:
		return true
	default:
		return false
	}
}

// validateMealSource validates that a string is a valid MealSource enum value
func validateMealSource(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.MealSource(value) {
	case models.MealSourcePhoto, models.MealSourceText, models.MealSourceVoice, models.MealSourceOther:
		return true
	default:
		return false
	}
}

// validateMealType validates that a string is a valid MealType enum value
func validateMealType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.MealType(value) {
	case models.MealTypeBreakfast, models.MealTypeLunch, models.MealTypeDinner, models.MealTypeSnack:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateGender validates a Gender string value
func ValidateGender(value string) error {
	switch models.Gender(value) {
	case models.GenderMale, models.GenderFemale:
		return nil
	default:
		return fmt.Errorf("invalid gender: %s (must be 'male' or 'female')", value)
	}
}

// ValidateActivityLevel validates an ActivityLevel string value
func ValidateActivityLevel(value string) error {
	switch models.ActivityLevel(value) {
	case models.ActivitySedentary, models.ActivityLight, models.ActivityModerate, models.ActivityHigh, models.ActivityVeryHigh:
		return nil
	default:
		return fmt.Errorf("invalid activity_level: %s (must be 'sedentary', 'light', 'moderate', 'high', or 'very_high')", value)
	}
}

// ValidateName validates a profile name after sanitization. Names are
// letters plus spaces only.
func ValidateName(value string) error {
	length := len([]rune(value))
	if length < MinNameLength || length > MaxNameLength {
		return fmt.Errorf("invalid name length: %d (must be %d-%d characters)", length, MinNameLength, MaxNameLength)
	}
	for _, r := range value {
		if !unicode.IsLetter(r) && r != ' ' {
			return fmt.Errorf("invalid name: must contain only letters and spaces")
		}
	}
	return nil
}

// ValidateAge validates a profile age.
func ValidateAge(value int) error {
	if value < MinAge || value > MaxAge {
		return fmt.Errorf("invalid age: %d (must be %d-%d)", value, MinAge, MaxAge)
	}
	return nil
}

// ValidateHeight validates a profile height in centimeters.
func ValidateHeight(value float64) error {
	if value < MinHeightCm || value > MaxHeightCm {
		return fmt.Errorf("invalid height: %g (must be %d-%d cm)", value, MinHeightCm, MaxHeightCm)
	}
	return nil
}

// ValidateWeight validates a profile weight in kilograms.
func ValidateWeight(value float64) error {
	if value < MinWeightKg || value > MaxWeightKg {
		return fmt.Errorf("invalid weight: %g (must be %d-%d kg)", value, MinWeightKg, MaxWeightKg)
	}
	return nil
}
