package offer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ComposeAddress renders "<street>, <city>, <state> <zip>".
func ComposeAddress(in AddressStep) string {
	return fmt.Sprintf(
		"%s, %s, %s %s",
		strings.TrimSpace(in.Street),
		strings.TrimSpace(in.City),
		strings.TrimSpace(in.State),
		strings.TrimSpace(in.ZipCode),
	)
}

// PropertyNumbers holds the numeric fields of the details step after parsing.
type PropertyNumbers struct {
	Bedrooms   float64
	Bathrooms  float64
	SquareFeet *int
	YearBuilt  *int
}

// ParseDetails converts the form strings of a validated details step.
// Open-ended options such as "6+" count as their lower bound.
func ParseDetails(in DetailsStep) (PropertyNumbers, error) {
	bedrooms, err := parseRoomCount(in.Bedrooms)
	if err != nil {
		return PropertyNumbers{}, fmt.Errorf("parse bedrooms: %w", err)
	}
	bathrooms, err := parseRoomCount(in.Bathrooms)
	if err != nil {
		return PropertyNumbers{}, fmt.Errorf("parse bathrooms: %w", err)
	}

	out := PropertyNumbers{
		Bedrooms:  bedrooms,
		Bathrooms: bathrooms,
	}

	if raw := strings.TrimSpace(in.SquareFeet); raw != "" {
		sqft, err := parseSquareFeet(raw)
		if err != nil {
			return PropertyNumbers{}, fmt.Errorf("parse square feet: %w", err)
		}
		out.SquareFeet = &sqft
	}
	if raw := strings.TrimSpace(in.YearBuilt); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return PropertyNumbers{}, fmt.Errorf("parse year built: %w", err)
		}
		out.YearBuilt = &year
	}
	return out, nil
}

// parseSquareFeet accepts a finite number whose whole part is between 1 and MaxSquareFeet.
func parseSquareFeet(raw string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("square feet %q is not a finite number", raw)
	}
	whole := math.Trunc(v)
	if whole < 1 || whole > MaxSquareFeet {
		return 0, fmt.Errorf("square feet %q outside 1..%d", raw, MaxSquareFeet)
	}
	return int(whole), nil
}

func parseRoomCount(raw string) (float64, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), "+")
	return strconv.ParseFloat(trimmed, 64)
}
