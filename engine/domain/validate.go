package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinModelYear is the earliest year we accept.
const MinModelYear = 1960

// yearDigits is the maximum length of a sanitized year.
const yearDigits = 4

// RequiredMessage is shown when any of year, make or model is blank.
const RequiredMessage = "Year, Make, and Model fields are required."

// SanitizeYear drops every character that is not an ASCII digit and keeps at
// most the first four digits.
func SanitizeYear(raw string) string {
	var b strings.Builder
	for i := 0; i < len(raw) && b.Len() < yearDigits; i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ParseYear parses a trimmed base-10 year. ok is false for anything that is
// not a plain integer, which callers treat as out of range.
func ParseYear(raw string) (year int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxModelYear is the latest year accepted at now. Next year's models are
// accepted from September onwards.
func MaxModelYear(now time.Time) int {
	if now.Month() >= time.September {
		return now.Year() + 1
	}
	return now.Year()
}

// YearRangeMessage is the modal text for an out-of-range year.
func YearRangeMessage(maxYear int) string {
	return fmt.Sprintf("Please enter a year between %d and %d", MinModelYear, maxYear)
}

// ValidateYearRange checks raw against [MinModelYear, MaxModelYear(now)].
// An empty value is an unfinished entry and passes; a value that does not
// parse fails like an out-of-range year.
func ValidateYearRange(raw string, now time.Time) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	maxYear := MaxModelYear(now)
	year, ok := ParseYear(raw)
	if !ok || year < MinModelYear || year > maxYear {
		return NewValidationError(FieldYear, raw, YearRangeMessage(maxYear), ErrYearOutOfRange)
	}
	return nil
}

// ValidateRequired trims each value and reports the first blank field in
// focus order.
func ValidateRequired(year, vehicleMake, model string) error {
	values := map[Field]string{FieldYear: year, FieldMake: vehicleMake, FieldModel: model}
	for _, f := range RequiredFields {
		if strings.TrimSpace(values[f]) == "" {
			return NewValidationError(f, values[f], RequiredMessage, ErrRequiredFields)
		}
	}
	return nil
}

// ValidateForm applies the same rules as the browser form to a submitted
// payload and returns the normalised vehicle.
func ValidateForm(in FormInput, now time.Time) (Vehicle, error) {
	year := SanitizeYear(strings.TrimSpace(in.Year))
	if strings.TrimSpace(in.Year) != "" && year != strings.TrimSpace(in.Year) {
		// Anything the sanitizer had to strip is not a year.
		return Vehicle{}, NewValidationError(FieldYear, in.Year, YearRangeMessage(MaxModelYear(now)), ErrYearOutOfRange)
	}
	if err := ValidateYearRange(year, now); err != nil {
		return Vehicle{}, err
	}
	if err := ValidateRequired(year, in.Make, in.Model); err != nil {
		return Vehicle{}, err
	}
	n, _ := ParseYear(year)
	return Vehicle{
		Year:  n,
		Make:  CanonicalMake(in.Make),
		Model: strings.TrimSpace(in.Model),
		Trim:  strings.TrimSpace(in.Trim),
	}, nil
}
