package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrRequiredFields = errors.New("required field missing")
	ErrYearOutOfRange = errors.New("year out of range")
)

// ValidationError wraps a sentinel with the offending field and the message
// shown to the user.
type ValidationError struct {
	Field   Field
	Value   string
	Msg     string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// Message returns the human-readable text for the error modal.
func (e *ValidationError) Message() string { return e.Msg }

// NewValidationError creates a ValidationError.
func NewValidationError(field Field, value, msg string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Msg: msg, Wrapped: wrapped}
}

// UserMessage extracts the modal text from err, falling back to err.Error().
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Msg != "" {
		return ve.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
