//go:build js && wasm

// Command formwasm binds the vehicle form controller to the page. Build it
// with GOOS=js GOARCH=wasm and serve it from the server's WASM_DIR as
// form.wasm next to Go's wasm_exec.js.
package main

import (
	"log/slog"
	"os"
	"syscall/js"

	"github.com/WessleyAI/vehicle-form/engine/form"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	doc := jsDocument{doc: js.Global().Get("document")}
	c, err := form.Attach(doc,
		form.WithLogger(logger),
		form.WithObserver(func(f form.Failure) {
			logger.Info("form validation failed", "kind", f.Kind, "field", f.Field)
		}),
	)
	if err != nil {
		logger.Error("attach form controller", "err", err)
		return
	}
	logger.Info("form controller ready", "modal", c.Modal().String())

	// Listeners call back into Go, so the program must stay alive.
	select {}
}
