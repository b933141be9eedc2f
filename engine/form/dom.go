// Package form implements the vehicle form controller: year sanitizing, year
// range checks on blur, required-field checks on submit, and the loading
// indicator and error modal that report them.
//
// The controller talks to the page through the small Document and Element
// interfaces below. The browser binding (cmd/formwasm) backs them with
// syscall/js; the server backs them with memdom to replay a submission.
package form

// Element IDs the page markup must provide.
const (
	IDForm         = "vehicle-form"
	IDSpinner      = "loading-spinner"
	IDYear         = "year"
	IDMake         = "make"
	IDModel        = "model"
	IDErrorModal   = "error-modal"
	IDModalMessage = "modal-message"
	IDCloseModal   = "close-modal"
)

// ElementIDs lists every element Attach looks up.
var ElementIDs = []string{
	IDForm, IDSpinner, IDYear, IDMake, IDModel,
	IDErrorModal, IDModalMessage, IDCloseModal,
}

// HiddenClass is the CSS class that means "not displayed".
const HiddenClass = "hidden"

// DOM event names the controller listens for.
const (
	EventInput  = "input"
	EventBlur   = "blur"
	EventSubmit = "submit"
	EventClick  = "click"
)

// Event is a dispatched DOM event.
type Event interface {
	Type() string
	PreventDefault()
}

// Listener handles a DOM event.
type Listener func(Event)

// Element is the subset of a DOM element the controller uses.
type Element interface {
	ID() string
	Value() string
	SetValue(v string)
	SetText(s string)
	Focus()
	AddClass(name string)
	RemoveClass(name string)
	HasClass(name string) bool
	AddEventListener(event string, fn Listener)
}

// Document looks elements up by ID.
type Document interface {
	ElementByID(id string) (Element, bool)
}
