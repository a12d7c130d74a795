package tracker

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dkotenko/calobot/internal/models"
	"github.com/dkotenko/calobot/internal/validation"
)

var (
	// ErrNoRegistration is returned when a step is submitted without a
	// draft in progress.
	ErrNoRegistration = errors.New("no registration in progress")

	// ErrRegistrationComplete is returned when a step is submitted after
	// the draft already collected every attribute.
	ErrRegistrationComplete = errors.New("registration already complete")
)

// RegistrationStep names the profile attribute the draft is waiting for.
type RegistrationStep string

const (
	StepName     RegistrationStep = "name"
	StepGender   RegistrationStep = "gender"
	StepAge      RegistrationStep = "age"
	StepHeight   RegistrationStep = "height"
	StepWeight   RegistrationStep = "weight"
	StepActivity RegistrationStep = "activity"
	StepComplete RegistrationStep = "complete"
)

// RegistrationDraft is an in-progress profile, filled one validated step
// at a time: name, gender, age, height, weight, activity.
type RegistrationDraft struct {
	Step     RegistrationStep     `json:"step"`
	Name     string               `json:"name,omitempty"`
	Gender   models.Gender        `json:"gender,omitempty"`
	Age      int                  `json:"age,omitempty"`
	Height   float64              `json:"height,omitempty"`
	Weight   float64              `json:"weight,omitempty"`
	Activity models.ActivityLevel `json:"activity_level,omitempty"`
}

// Complete reports whether every step has been answered.
func (d *RegistrationDraft) Complete() bool {
	return d.Step == StepComplete
}

// Profile materializes the draft into a profile for the given identity.
// The daily target is left for the caller to derive.
func (d *RegistrationDraft) Profile(userID int64, username string) *models.UserProfile {
	return &models.UserProfile{
		UserID:        userID,
		Username:      username,
		Name:          d.Name,
		Gender:        d.Gender,
		Age:           d.Age,
		Height:        d.Height,
		Weight:        d.Weight,
		ActivityLevel: d.Activity,
	}
}

// advance validates the input against the current step and moves to the
// next one. The draft is unchanged when the input is rejected.
func (d *RegistrationDraft) advance(input string) error {
	text := validation.SanitizeText(input)

	switch d.Step {
	case StepName:
		if err := validation.ValidateName(text); err != nil {
			return err
		}
		d.Name = text
		d.Step = StepGender

	case StepGender:
		if err := validation.ValidateGender(text); err != nil {
			return err
		}
		d.Gender = models.Gender(text)
		d.Step = StepAge

	case StepAge:
		age, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("invalid age: %q is not a whole number", text)
		}
		if err := validation.ValidateAge(age); err != nil {
			return err
		}
		d.Age = age
		d.Step = StepHeight

	case StepHeight:
		height, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("invalid height: %q is not a number", text)
		}
		if err := validation.ValidateHeight(height); err != nil {
			return err
		}
		d.Height = height
		d.Step = StepWeight

	case StepWeight:
		weight, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("invalid weight: %q is not a number", text)
		}
		if err := validation.ValidateWeight(weight); err != nil {
			return err
		}
		d.Weight = weight
		d.Step = StepActivity

	case StepActivity:
		// Accepts canonical values plus legacy spellings the controller
		// may still send ("activity_moderate", "very high").
		level := models.NormalizeActivityLevel(text)
		if err := validation.ValidateActivityLevel(string(level)); err != nil {
			return fmt.Errorf("invalid activity_level: %s (must be 'sedentary', 'light', 'moderate', 'high', or 'very_high')", text)
		}
		d.Activity = level
		d.Step = StepComplete

	default:
		return ErrRegistrationComplete
	}

	return nil
}

// StartRegistration begins (or restarts) a registration draft and returns
// it.
func (t *Tracker) StartRegistration(userID int64) RegistrationDraft {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.reconciled(userID)
	s.draft = &RegistrationDraft{Step: StepName}
	return *s.draft
}

// Registration returns a copy of the in-progress draft, if any.
func (t *Tracker) Registration(userID int64) (RegistrationDraft, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.reconciled(userID)
	if s.draft == nil {
		return RegistrationDraft{}, false
	}
	return *s.draft, true
}

// AdvanceRegistration submits one step's input. The returned draft
// reflects the state after the attempt; on a validation error the draft
// is unchanged and stays on the same step.
func (t *Tracker) AdvanceRegistration(userID int64, input string) (RegistrationDraft, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.reconciled(userID)
	if s.draft == nil {
		return RegistrationDraft{}, ErrNoRegistration
	}
	if err := s.draft.advance(input); err != nil {
		return *s.draft, err
	}
	return *s.draft, nil
}

// CancelRegistration discards the draft, if any.
func (t *Tracker) CancelRegistration(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reconciled(userID).draft = nil
}
