package memdom

import (
	"github.com/WessleyAI/vehicle-form/engine/domain"
	"github.com/WessleyAI/vehicle-form/engine/form"
)

// Outcome is what a browser would show after a user typed in and submitted
// the form.
type Outcome struct {
	// Values are the field contents at submit time, after sanitizing.
	Values domain.FormInput `json:"values"`
	// Valid is true when the submission would go through.
	Valid bool `json:"valid"`
	// Failures lists every modal shown, in order.
	Failures []form.Failure `json:"failures,omitempty"`
	// Focus is the ID of the field focused after submit, if any.
	Focus string `json:"focus,omitempty"`
	// Modal and Spinner are the final visibility of the error modal and
	// loading indicator.
	Modal   form.ModalState `json:"-"`
	Spinner bool            `json:"-"`
	// States holds the final edit state of year, make and model.
	States map[string]form.FieldState `json:"-"`
}

// Message is the first modal text shown, or "" when nothing failed.
func (o Outcome) Message() string {
	if len(o.Failures) == 0 {
		return ""
	}
	return o.Failures[0].Message
}

// Replay types in into a fresh vehicle form the way a user would: each
// field receives an input event, the year field is blurred, and the form is
// submitted. The trim is passed through untouched.
func Replay(in domain.FormInput, opts ...form.Option) (Outcome, error) {
	doc := NewVehicleForm()
	var out Outcome
	opts = append(opts, form.WithObserver(func(f form.Failure) {
		out.Failures = append(out.Failures, f)
	}))
	c, err := form.Attach(doc, opts...)
	if err != nil {
		return Outcome{}, err
	}

	doc.Type(form.IDYear, in.Year)
	doc.Blur(form.IDYear)
	doc.Type(form.IDMake, in.Make)
	doc.Type(form.IDModel, in.Model)
	proceeds := doc.Submit(form.IDForm)

	out.Values = c.Values()
	out.Values.Trim = in.Trim
	out.Valid = proceeds && len(out.Failures) == 0
	out.Focus = doc.ActiveElement()
	out.Modal = c.Modal()
	out.Spinner = !doc.Element(form.IDSpinner).HasClass(form.HiddenClass)
	out.States = map[string]form.FieldState{
		form.IDYear:  c.State(form.IDYear),
		form.IDMake:  c.State(form.IDMake),
		form.IDModel: c.State(form.IDModel),
	}
	return out, nil
}
