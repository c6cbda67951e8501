package offer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	MinYearBuilt = 1800
	// MaxSquareFeet caps the living area so the parsed value always fits an int.
	MaxSquareFeet = 1_000_000

	MaxPhotos          = 10
	MaxFloorPlans      = 1
	MaxAttachmentBytes = 10 * 1024 * 1024
)

var (
	zipPattern   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)

	BedroomOptions  = []string{"1", "2", "3", "4", "5", "6+"}
	BathroomOptions = []string{"1", "1.5", "2", "2.5", "3", "3.5", "4+"}
)

// FieldErrors maps a field name to its message. Empty means valid.
type FieldErrors map[string]string

func (f FieldErrors) Valid() bool { return len(f) == 0 }

// ValidZip reports whether zip is a 5 or 5+4 digit US ZIP code.
func ValidZip(zip string) bool {
	return zipPattern.MatchString(zip)
}

func ValidateAddress(in AddressStep) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(in.Street) == "" {
		errs["street"] = "Property address is required"
	}
	if strings.TrimSpace(in.City) == "" {
		errs["city"] = "City is required"
	}
	if strings.TrimSpace(in.State) == "" {
		errs["state"] = "State is required"
	}

	zip := strings.TrimSpace(in.ZipCode)
	switch {
	case zip == "":
		errs["zip_code"] = "ZIP code is required"
	case !ValidZip(zip):
		errs["zip_code"] = "Please enter a valid ZIP code"
	}
	return errs
}

func ValidateDetails(in DetailsStep, now time.Time) FieldErrors {
	errs := FieldErrors{}

	bedrooms := strings.TrimSpace(in.Bedrooms)
	switch {
	case bedrooms == "":
		errs["bedrooms"] = "Number of bedrooms is required"
	case !contains(BedroomOptions, bedrooms):
		errs["bedrooms"] = "Please select a valid number of bedrooms"
	}

	bathrooms := strings.TrimSpace(in.Bathrooms)
	switch {
	case bathrooms == "":
		errs["bathrooms"] = "Number of bathrooms is required"
	case !contains(BathroomOptions, bathrooms):
		errs["bathrooms"] = "Please select a valid number of bathrooms"
	}

	squareFeet := strings.TrimSpace(in.SquareFeet)
	if squareFeet == "" {
		errs["square_feet"] = "Square footage is required"
	} else if _, err := parseSquareFeet(squareFeet); err != nil {
		errs["square_feet"] = "Please enter a valid square footage"
	}

	currentYear := now.Year()
	yearBuilt := strings.TrimSpace(in.YearBuilt)
	if yearBuilt == "" {
		errs["year_built"] = "Year built is required"
	} else if year, err := strconv.Atoi(yearBuilt); err != nil || year < MinYearBuilt || year > currentYear {
		errs["year_built"] = fmt.Sprintf("Please enter a year between %d and %d", MinYearBuilt, currentYear)
	}

	propertyType := strings.TrimSpace(in.PropertyType)
	switch {
	case propertyType == "":
		errs["property_type"] = "Property type is required"
	case !PropertyType(propertyType).Valid():
		errs["property_type"] = "Please select a valid property type"
	}
	return errs
}

// ValidateCondition does not look at attachments; their caps apply when they are selected.
func ValidateCondition(in ConditionStep) FieldErrors {
	errs := FieldErrors{}
	if !Condition(strings.TrimSpace(in.Condition)).Valid() {
		errs["condition"] = "Please select your property condition"
	}
	return errs
}

func ValidateContact(in ContactStep) FieldErrors {
	errs := FieldErrors{}

	timeline := strings.TrimSpace(in.Timeline)
	switch {
	case timeline == "":
		errs["timeline"] = "Please select your timeline"
	case !Timeline(timeline).Valid():
		errs["timeline"] = "Please select a valid timeline"
	}

	if phone := strings.TrimSpace(in.Phone); phone != "" && !phonePattern.MatchString(phone) {
		errs["phone"] = "Please enter a valid phone number"
	}
	return errs
}

// ValidateStep dispatches to the validator of the step the data belongs to.
func ValidateStep(data StepData, now time.Time) FieldErrors {
	switch v := data.(type) {
	case AddressStep:
		return ValidateAddress(v)
	case DetailsStep:
		return ValidateDetails(v, now)
	case ConditionStep:
		return ValidateCondition(v)
	case ContactStep:
		return ValidateContact(v)
	}
	return FieldErrors{"step": "Unknown form step"}
}

// ValidateAttachments enforces the selection-time soft caps on newly added files.
func ValidateAttachments(existing []Attachment, added []Attachment) error {
	photos, floorPlans := 0, 0
	for _, a := range existing {
		switch a.Kind {
		case AttachmentPhoto:
			photos++
		case AttachmentFloorPlan:
			floorPlans++
		}
	}

	for _, a := range added {
		if a.SizeBytes > MaxAttachmentBytes {
			return fmt.Errorf("%w: %s exceeds 10MB", ErrAttachmentLimit, a.Name)
		}
		switch a.Kind {
		case AttachmentPhoto:
			photos++
			if photos > MaxPhotos {
				return fmt.Errorf("%w: at most %d photos", ErrAttachmentLimit, MaxPhotos)
			}
		case AttachmentFloorPlan:
			floorPlans++
			if floorPlans > MaxFloorPlans {
				return fmt.Errorf("%w: at most %d floor plan", ErrAttachmentLimit, MaxFloorPlans)
			}
		default:
			return fmt.Errorf("%w: unknown attachment kind %q", ErrAttachmentLimit, a.Kind)
		}
	}
	return nil
}

func contains(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}
