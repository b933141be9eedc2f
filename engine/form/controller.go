package form

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/WessleyAI/vehicle-form/engine/domain"
)

// ErrMissingElement is returned by Attach when the markup lacks a required ID.
var ErrMissingElement = errors.New("form: missing element")

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used for the model-year upper bound.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithObserver registers fn to be called for every failure shown in the modal.
func WithObserver(fn func(Failure)) Option {
	return func(c *Controller) { c.observers = append(c.observers, fn) }
}

// Controller owns the form's elements for the lifetime of the page. It is
// driven by DOM events and is not safe for concurrent use.
type Controller struct {
	form, spinner           Element
	yearIn, makeIn, modelIn Element
	modal, message, closeBt Element

	now       func() time.Time
	log       *slog.Logger
	observers []func(Failure)
	states    map[string]FieldState
}

// Attach looks up every element in ElementIDs and registers the controller's
// listeners on them.
func Attach(doc Document, opts ...Option) (*Controller, error) {
	els := make(map[string]Element, len(ElementIDs))
	for _, id := range ElementIDs {
		el, ok := doc.ElementByID(id)
		if !ok || el == nil {
			return nil, fmt.Errorf("%w: #%s", ErrMissingElement, id)
		}
		els[id] = el
	}

	c := &Controller{
		form:    els[IDForm],
		spinner: els[IDSpinner],
		yearIn:  els[IDYear],
		makeIn:  els[IDMake],
		modelIn: els[IDModel],
		modal:   els[IDErrorModal],
		message: els[IDModalMessage],
		closeBt: els[IDCloseModal],
		now:     time.Now,
		states:  make(map[string]FieldState, 3),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}

	for _, el := range []Element{c.yearIn, c.makeIn, c.modelIn} {
		c.states[el.ID()] = initialState(el.Value())
	}

	c.yearIn.AddEventListener(EventInput, func(Event) { c.SanitizeYearInput() })
	c.yearIn.AddEventListener(EventBlur, func(Event) { c.ValidateYearRange() })
	c.makeIn.AddEventListener(EventInput, func(Event) { c.typed(c.makeIn) })
	c.modelIn.AddEventListener(EventInput, func(Event) { c.typed(c.modelIn) })
	c.form.AddEventListener(EventSubmit, c.OnSubmit)
	c.closeBt.AddEventListener(EventClick, func(Event) { c.CloseErrorModal() })

	c.log.Debug("form controller attached", "form", c.form.ID())
	return c, nil
}

func initialState(v string) FieldState {
	if strings.TrimSpace(v) == "" {
		return FieldEmpty
	}
	return FieldTyping
}

// SanitizeYearInput keeps only the first four digits of the year field.
func (c *Controller) SanitizeYearInput() {
	clean := domain.SanitizeYear(c.yearIn.Value())
	c.yearIn.SetValue(clean)
	if clean == "" {
		c.states[IDYear] = FieldEmpty
		return
	}
	c.states[IDYear] = FieldSanitized
}

// ValidateYearRange checks the year field against the accepted model years.
// On failure the field is cleared and the modal shows the accepted range.
func (c *Controller) ValidateYearRange() bool {
	raw := c.yearIn.Value()
	if err := domain.ValidateYearRange(raw, c.now()); err != nil {
		c.yearIn.SetValue("")
		c.states[IDYear] = FieldEmpty
		c.fail(FailureYearRange, IDYear, domain.UserMessage(err))
		return false
	}
	if strings.TrimSpace(raw) != "" {
		c.states[IDYear] = FieldValid
	}
	return true
}

// ValidateRequiredFields checks that year, make and model are non-blank. On
// failure it shows the modal, hides the spinner and focuses the first blank
// field.
func (c *Controller) ValidateRequiredFields() bool {
	err := domain.ValidateRequired(c.yearIn.Value(), c.makeIn.Value(), c.modelIn.Value())
	for _, el := range []Element{c.yearIn, c.makeIn, c.modelIn} {
		switch {
		case strings.TrimSpace(el.Value()) != "":
			c.states[el.ID()] = FieldValid
		case el.ID() == IDYear:
			c.states[el.ID()] = FieldEmpty
		default:
			c.states[el.ID()] = FieldInvalid
		}
	}
	if err == nil {
		return true
	}

	var ve *domain.ValidationError
	focus := c.yearIn
	if errors.As(err, &ve) {
		focus = c.fieldElement(ve.Field)
	}
	c.fail(FailureRequired, focus.ID(), domain.UserMessage(err))
	c.HideLoadingIndicator()
	focus.Focus()
	return false
}

// OnSubmit shows the spinner and cancels the submission when a required
// field is blank.
func (c *Controller) OnSubmit(ev Event) {
	c.ShowLoadingIndicator()
	if !c.ValidateRequiredFields() {
		ev.PreventDefault()
	}
}

// ShowErrorModal sets the modal text and reveals it.
func (c *Controller) ShowErrorModal(message string) {
	c.message.SetText(message)
	c.modal.RemoveClass(HiddenClass)
}

// CloseErrorModal hides the modal.
func (c *Controller) CloseErrorModal() {
	c.modal.AddClass(HiddenClass)
}

// ShowLoadingIndicator reveals the spinner.
func (c *Controller) ShowLoadingIndicator() { c.spinner.RemoveClass(HiddenClass) }

// HideLoadingIndicator hides the spinner.
func (c *Controller) HideLoadingIndicator() { c.spinner.AddClass(HiddenClass) }

// State returns the edit state of the year, make or model field.
func (c *Controller) State(id string) FieldState { return c.states[id] }

// Modal reports whether the error modal is visible.
func (c *Controller) Modal() ModalState {
	if c.modal.HasClass(HiddenClass) {
		return ModalHidden
	}
	return ModalShown
}

// Values returns the current field contents.
func (c *Controller) Values() domain.FormInput {
	return domain.FormInput{
		Year:  c.yearIn.Value(),
		Make:  c.makeIn.Value(),
		Model: c.modelIn.Value(),
	}
}

func (c *Controller) typed(el Element) {
	c.states[el.ID()] = initialState(el.Value())
}

func (c *Controller) fieldElement(f domain.Field) Element {
	switch f {
	case domain.FieldMake:
		return c.makeIn
	case domain.FieldModel:
		return c.modelIn
	default:
		return c.yearIn
	}
}

func (c *Controller) fail(kind FailureKind, field, message string) {
	c.ShowErrorModal(message)
	c.log.Debug("form validation failed", "kind", kind, "field", field)
	f := Failure{Kind: kind, Field: field, Message: message}
	for _, fn := range c.observers {
		fn(f)
	}
}
