// Package client talks to a cubicd device over its HTTP/JSON surface.
//
// Every method takes a context and honours its cancellation. Status codes
// are mapped to sentinel errors: 400 wraps common.ErrBadInput, 404 wraps
// common.ErrNotFound and transport failures wrap ErrUnavailable.
package client
