// Package contracts holds the small interfaces shared between the
// application shell and the per-domain HTTP handlers.
package contracts

import "github.com/julienschmidt/httprouter"

// Handler is what a domain handler must expose for the application to mount
// it; each service wires exactly one.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
