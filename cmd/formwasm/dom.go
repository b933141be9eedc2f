//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/WessleyAI/vehicle-form/engine/form"
)

// jsDocument adapts the browser document to form.Document.
type jsDocument struct {
	doc js.Value
}

func (d jsDocument) ElementByID(id string) (form.Element, bool) {
	v := d.doc.Call("getElementById", id)
	if v.IsNull() || v.IsUndefined() {
		return nil, false
	}
	return &jsElement{v: v, id: id}, true
}

// jsElement adapts a DOM element to form.Element. Listener funcs are kept
// for the page lifetime and never released.
type jsElement struct {
	v   js.Value
	id  string
	fns []js.Func
}

func (e *jsElement) ID() string                { return e.id }
func (e *jsElement) Value() string             { return e.v.Get("value").String() }
func (e *jsElement) SetValue(s string)         { e.v.Set("value", s) }
func (e *jsElement) SetText(s string)          { e.v.Set("textContent", s) }
func (e *jsElement) Focus()                    { e.v.Call("focus") }
func (e *jsElement) AddClass(name string)      { e.v.Get("classList").Call("add", name) }
func (e *jsElement) RemoveClass(name string)   { e.v.Get("classList").Call("remove", name) }
func (e *jsElement) HasClass(name string) bool { return e.v.Get("classList").Call("contains", name).Bool() }

func (e *jsElement) AddEventListener(event string, fn form.Listener) {
	cb := js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) > 0 {
			fn(jsEvent{v: args[0]})
		}
		return nil
	})
	e.fns = append(e.fns, cb)
	e.v.Call("addEventListener", event, cb)
}

// jsEvent adapts a DOM event to form.Event.
type jsEvent struct {
	v js.Value
}

func (ev jsEvent) Type() string    { return ev.v.Get("type").String() }
func (ev jsEvent) PreventDefault() { ev.v.Call("preventDefault") }
