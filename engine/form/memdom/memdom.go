// Package memdom is an in-memory form.Document. The server replays native
// form submissions through it, and tests use it to drive the controller.
package memdom

import (
	"sort"

	"github.com/WessleyAI/vehicle-form/engine/form"
)

// Compile-time interface checks.
var (
	_ form.Document = (*Document)(nil)
	_ form.Element  = (*Element)(nil)
	_ form.Event    = (*Event)(nil)
)

// Event is a dispatched event that records PreventDefault calls.
type Event struct {
	typ       string
	prevented bool
}

// Type returns the event name.
func (e *Event) Type() string { return e.typ }

// PreventDefault cancels the default action.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether a listener cancelled the default action.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// Element is an in-memory DOM element.
type Element struct {
	doc       *Document
	id        string
	value     string
	text      string
	classes   map[string]bool
	listeners map[string][]form.Listener
}

func (e *Element) ID() string             { return e.id }
func (e *Element) Value() string          { return e.value }
func (e *Element) SetValue(v string)      { e.value = v }
func (e *Element) Text() string           { return e.text }
func (e *Element) SetText(s string)       { e.text = s }
func (e *Element) Focus()                 { e.doc.active = e.id }
func (e *Element) AddClass(n string)      { e.classes[n] = true }
func (e *Element) RemoveClass(n string)   { delete(e.classes, n) }
func (e *Element) HasClass(n string) bool { return e.classes[n] }

// Classes returns the element's classes sorted by name.
func (e *Element) Classes() []string {
	out := make([]string, 0, len(e.classes))
	for c := range e.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// AddEventListener registers fn for event. Listeners run in registration order.
func (e *Element) AddEventListener(event string, fn form.Listener) {
	e.listeners[event] = append(e.listeners[event], fn)
}

// Document holds elements by ID and tracks the focused element.
type Document struct {
	elements map[string]*Element
	active   string
}

// New returns an empty document.
func New() *Document {
	return &Document{elements: make(map[string]*Element)}
}

// NewVehicleForm returns a document with every element the form controller
// needs, with the spinner and the modal hidden.
func NewVehicleForm() *Document {
	d := New()
	for _, id := range form.ElementIDs {
		el := d.Add(id)
		if id == form.IDSpinner || id == form.IDErrorModal {
			el.AddClass(form.HiddenClass)
		}
	}
	return d
}

// Add creates (or replaces) the element with the given ID.
func (d *Document) Add(id string, classes ...string) *Element {
	el := &Element{
		doc:       d,
		id:        id,
		classes:   make(map[string]bool, len(classes)),
		listeners: make(map[string][]form.Listener),
	}
	for _, c := range classes {
		el.classes[c] = true
	}
	d.elements[id] = el
	return el
}

// Remove deletes the element with the given ID.
func (d *Document) Remove(id string) { delete(d.elements, id) }

// ElementByID implements form.Document.
func (d *Document) ElementByID(id string) (form.Element, bool) {
	el, ok := d.elements[id]
	if !ok {
		return nil, false
	}
	return el, true
}

// Element returns the concrete element, or nil.
func (d *Document) Element(id string) *Element { return d.elements[id] }

// ActiveElement returns the ID of the focused element, or "".
func (d *Document) ActiveElement() string { return d.active }

// Dispatch fires event on the element and returns the event after every
// listener has run. Dispatching to an unknown ID is a no-op.
func (d *Document) Dispatch(id, event string) *Event {
	ev := &Event{typ: event}
	el, ok := d.elements[id]
	if !ok {
		return ev
	}
	for _, fn := range el.listeners[event] {
		fn(ev)
	}
	return ev
}

// Type replaces the element's value with text and fires an input event.
func (d *Document) Type(id, text string) {
	if el, ok := d.elements[id]; ok {
		el.value = text
	}
	d.Dispatch(id, form.EventInput)
}

// Blur fires a blur event and drops focus if the element had it.
func (d *Document) Blur(id string) {
	if d.active == id {
		d.active = ""
	}
	d.Dispatch(id, form.EventBlur)
}

// Click fires a click event.
func (d *Document) Click(id string) { d.Dispatch(id, form.EventClick) }

// Submit fires a submit event and reports whether the submission would
// proceed.
func (d *Document) Submit(id string) bool {
	return !d.Dispatch(id, form.EventSubmit).DefaultPrevented()
}
