package offer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidQuoteStatus      = errors.New("invalid quote status")
	ErrInvalidTransition       = errors.New("invalid quote status transition")
	ErrInvalidCalculation      = errors.New("invalid calculation details")
	ErrCalculationCompleted    = errors.New("valuation already completed")
	ErrQuoteNotFound           = errors.New("quote not found")
	ErrPropertyNotFound        = errors.New("property not found")
	ErrNotOwner                = errors.New("quote belongs to another user")
	ErrPropertyMismatch        = errors.New("property does not match quote")
	ErrUnknownSlot             = errors.New("unknown inspection time slot")
	ErrOutsideSchedulingWindow = errors.New("date outside scheduling window")
	ErrAttachmentLimit         = errors.New("attachment limit exceeded")
	ErrAlreadySubmitted        = errors.New("wizard already submitted")
	ErrSubmitting              = errors.New("wizard submission in progress")
	ErrWrongStep               = errors.New("step data does not match current step")
	ErrPreconditionFailed      = errors.New("precondition failed")
	ErrInvalidAmount           = errors.New("invalid offer amount")
)

// ValidationError carries the per-field messages of one wizard step.
type ValidationError struct {
	Step   Step
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("validation failed for %s step: %s", e.Step, strings.Join(parts, "; "))
}

func (e *ValidationError) UserMessage() string {
	return "Please correct the highlighted fields and try again."
}

// Missing pieces reported by PreconditionError.
const (
	MissingSession           = "session"
	MissingEmailVerification = "email_verification"
)

// PreconditionError names the piece missing before a wizard submission can run.
type PreconditionError struct {
	Missing string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrPreconditionFailed, e.Missing)
}

func (e *PreconditionError) Unwrap() error { return ErrPreconditionFailed }

func (e *PreconditionError) UserMessage() string {
	switch e.Missing {
	case MissingSession:
		return "You must be logged in to submit a property. Please log in and try again."
	case MissingEmailVerification:
		return "Please verify your email address before submitting a property."
	}
	return "Missing required form data. Please go back and complete all steps."
}

// PropertyCreationError means the property insert failed and no quote was attempted.
type PropertyCreationError struct {
	Err error
}

func (e *PropertyCreationError) Error() string { return "create property: " + e.Err.Error() }
func (e *PropertyCreationError) Unwrap() error { return e.Err }

func (e *PropertyCreationError) UserMessage() string {
	return fmt.Sprintf("There was an error submitting your property: %s. Please try again.", e.Err.Error())
}

// QuoteCreationError means the quote insert failed after the property insert.
type QuoteCreationError struct {
	PropertyID string
	Err        error
}

func (e *QuoteCreationError) Error() string { return "create quote: " + e.Err.Error() }
func (e *QuoteCreationError) Unwrap() error { return e.Err }

func (e *QuoteCreationError) UserMessage() string {
	return fmt.Sprintf("There was an error creating your quote: %s. Please try again.", e.Err.Error())
}

// SchedulingError wraps any failure of the inspection scheduler.
type SchedulingError struct {
	QuoteID string
	Err     error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("schedule inspection for quote %s: %v", e.QuoteID, e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

func (e *SchedulingError) UserMessage() string {
	switch {
	case errors.Is(e.Err, ErrOutsideSchedulingWindow):
		return fmt.Sprintf(
			"Please pick a date between %d and %d days from today.",
			SchedulingLeadDays,
			SchedulingLeadDays+SchedulingWindowDays-1,
		)
	case errors.Is(e.Err, ErrUnknownSlot):
		return "Please choose a morning, afternoon or evening slot."
	case errors.Is(e.Err, ErrInvalidTransition):
		return "This quote is not ready for an inspection."
	}
	return "We could not schedule your inspection. Please try again."
}

// StaleCalculationError reports a valuation that never completed.
type StaleCalculationError struct {
	QuoteID   string
	StartedAt time.Time
	Age       time.Duration
}

func (e *StaleCalculationError) Error() string {
	return fmt.Sprintf("quote %s calculating for %s since %s", e.QuoteID, e.Age.Round(time.Second), e.StartedAt.Format(time.RFC3339))
}

func (e *StaleCalculationError) UserMessage() string {
	return "Your offer is taking longer than expected. We are looking into it."
}
