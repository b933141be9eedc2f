package form

// FieldState tracks where a field is in its edit/validate cycle.
type FieldState int

const (
	FieldEmpty     FieldState = iota // nothing entered, or cleared after a bad year
	FieldTyping                      // user is editing
	FieldSanitized                   // year only: digits kept after an input event
	FieldValid
	FieldInvalid
)

func (s FieldState) String() string {
	switch s {
	case FieldEmpty:
		return "empty"
	case FieldTyping:
		return "typing"
	case FieldSanitized:
		return "sanitized"
	case FieldValid:
		return "valid"
	case FieldInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ModalState is the visibility of the error modal.
type ModalState int

const (
	ModalHidden ModalState = iota
	ModalShown
)

func (s ModalState) String() string {
	if s == ModalShown {
		return "shown"
	}
	return "hidden"
}

// FailureKind classifies a validation failure reported to observers.
type FailureKind string

const (
	FailureRequired  FailureKind = "required"
	FailureYearRange FailureKind = "year_range"
)

// Failure describes a validation failure surfaced through the modal.
type Failure struct {
	Kind    FailureKind
	Field   string
	Message string
}
