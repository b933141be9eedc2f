// Package domain defines the vehicle form's core types and the validation rules
// shared by the browser controller and the classification backend.
package domain

import (
	"strconv"
	"strings"
)

// Vehicle is a validated year/make/model triple with an optional trim.
type Vehicle struct {
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Trim  string `json:"trim,omitempty"`
}

// FormInput is the raw, untrusted content of the vehicle form.
type FormInput struct {
	Year  string `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Trim  string `json:"trim,omitempty"`
}

// Field names a required form field. The declaration order is the focus order.
type Field string

const (
	FieldYear  Field = "year"
	FieldMake  Field = "make"
	FieldModel Field = "model"
)

// RequiredFields lists the required fields in focus order.
var RequiredFields = []Field{FieldYear, FieldMake, FieldModel}

// Category is the size class a vehicle is sorted into.
type Category string

const (
	CategorySmall      Category = "Small"
	CategoryMedium     Category = "Medium"
	CategoryLarge      Category = "Large"
	CategoryExtraLarge Category = "Extra Large"
)

// Categories is the set of recognised size categories, largest name first so
// prefix matching never picks "Large" out of "Extra Large".
var Categories = []Category{CategoryExtraLarge, CategorySmall, CategoryMedium, CategoryLarge}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, bool) {
	s = strings.Trim(strings.TrimSpace(s), `"'.*`)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// String renders the vehicle the way a person would say it.
func (v Vehicle) String() string {
	parts := []string{}
	if v.Year > 0 {
		parts = append(parts, strconv.Itoa(v.Year))
	}
	for _, p := range []string{v.Make, v.Model, v.Trim} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
