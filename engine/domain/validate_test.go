package domain

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

var sanitizedYear = regexp.MustCompile(`^[0-9]{0,4}$`)

func date(year int, month time.Month) time.Time {
	return time.Date(year, month, 15, 12, 0, 0, 0, time.UTC)
}

func TestSanitizeYear(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"abcd":       "",
		"2020":       "2020",
		"20a2b0":     "2020",
		"199999":     "1999",
		" 1 9 8 5 ":  "1985",
		"١٩٨٥":       "",
		"-2020":      "2020",
		"2.5e3":      "253",
		"12":         "12",
		"0000000000": "0000",
	}
	for in, want := range cases {
		if got := SanitizeYear(in); got != want {
			t.Errorf("SanitizeYear(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestSanitizeYear_AlwaysMatchesCharacterClass(t *testing.T) {
	inputs := []string{"", "x", "2024🚗", "\x00\xff19", "year: 2024!!", "99999999", "日本2023"}
	for _, in := range inputs {
		if got := SanitizeYear(in); !sanitizedYear.MatchString(got) {
			t.Errorf("SanitizeYear(%q) = %q does not match %s", in, got, sanitizedYear)
		}
	}
}

func TestParseYear(t *testing.T) {
	if y, ok := ParseYear(" 2020 "); !ok || y != 2020 {
		t.Errorf("expected 2020, got %d ok=%v", y, ok)
	}
	for _, bad := range []string{"", "abc", "20x0", "2020.5"} {
		if _, ok := ParseYear(bad); ok {
			t.Errorf("expected %q not to parse", bad)
		}
	}
}

func TestMaxModelYear(t *testing.T) {
	cases := []struct {
		now  time.Time
		want int
	}{
		{date(2026, time.January), 2026},
		{date(2026, time.August), 2026},
		{time.Date(2026, time.August, 31, 23, 59, 59, 0, time.UTC), 2026},
		{time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), 2027},
		{date(2026, time.October), 2027},
		{date(2026, time.December), 2027},
	}
	for _, tc := range cases {
		if got := MaxModelYear(tc.now); got != tc.want {
			t.Errorf("MaxModelYear(%s) = %d, expected %d", tc.now.Format("2006-01"), got, tc.want)
		}
	}
}

func TestValidateYearRange_Boundaries(t *testing.T) {
	jan := date(2026, time.January)
	oct := date(2026, time.October)

	cases := []struct {
		raw   string
		now   time.Time
		valid bool
	}{
		{"1959", jan, false},
		{"1960", jan, true},
		{"2026", jan, true},
		{"2027", jan, false},
		{"2027", oct, true},
		{"2028", oct, false},
		{"1899", oct, false},
		{"", jan, true},
		{"   ", jan, true},
		{"abcd", jan, false},
	}
	for _, tc := range cases {
		err := ValidateYearRange(tc.raw, tc.now)
		if tc.valid && err != nil {
			t.Errorf("ValidateYearRange(%q, %s): unexpected error %v", tc.raw, tc.now.Month(), err)
		}
		if !tc.valid && !errors.Is(err, ErrYearOutOfRange) {
			t.Errorf("ValidateYearRange(%q, %s): expected ErrYearOutOfRange, got %v", tc.raw, tc.now.Month(), err)
		}
	}
}

func TestValidateYearRange_Message(t *testing.T) {
	err := ValidateYearRange("1899", date(2026, time.October))
	if got := UserMessage(err); got != "Please enter a year between 1960 and 2027" {
		t.Fatalf("unexpected message %q", got)
	}
	err = ValidateYearRange("1899", date(2026, time.March))
	if got := UserMessage(err); got != "Please enter a year between 1960 and 2026" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestValidateRequired_FirstEmptyField(t *testing.T) {
	cases := []struct {
		year, mk, model string
		want            Field
	}{
		{"", "", "", FieldYear},
		{" ", "Ford", "F-150", FieldYear},
		{"2020", "", "", FieldMake},
		{"2020", "\t", "Civic", FieldMake},
		{"2020", "Honda", "  ", FieldModel},
	}
	for _, tc := range cases {
		err := ValidateRequired(tc.year, tc.mk, tc.model)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if !errors.Is(err, ErrRequiredFields) {
			t.Errorf("expected ErrRequiredFields, got %v", err)
		}
		if ve.Field != tc.want {
			t.Errorf("expected field %s, got %s", tc.want, ve.Field)
		}
		if ve.Message() != RequiredMessage {
			t.Errorf("unexpected message %q", ve.Message())
		}
	}

	if err := ValidateRequired("2020", "Honda", "Civic"); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateForm(t *testing.T) {
	now := date(2026, time.October)

	v, err := ValidateForm(FormInput{Year: " 2019 ", Make: "chevy", Model: " Tahoe ", Trim: " LT "}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Vehicle{Year: 2019, Make: "Chevrolet", Model: "Tahoe", Trim: "LT"}
	if v != want {
		t.Fatalf("expected %+v, got %+v", want, v)
	}

	if _, err := ValidateForm(FormInput{Year: "20x9", Make: "Ford", Model: "Focus"}, now); !errors.Is(err, ErrYearOutOfRange) {
		t.Errorf("expected ErrYearOutOfRange for non-numeric year, got %v", err)
	}
	if _, err := ValidateForm(FormInput{Year: "1950", Make: "Ford", Model: "Focus"}, now); !errors.Is(err, ErrYearOutOfRange) {
		t.Errorf("expected ErrYearOutOfRange, got %v", err)
	}
	if _, err := ValidateForm(FormInput{Year: "2020", Make: "Ford"}, now); !errors.Is(err, ErrRequiredFields) {
		t.Errorf("expected ErrRequiredFields, got %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	if UserMessage(nil) != "" {
		t.Fatal("expected empty message for nil")
	}
	if got := UserMessage(errors.New("boom")); got != "boom" {
		t.Fatalf("expected fallback to Error(), got %q", got)
	}
}
