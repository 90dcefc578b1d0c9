// Package httpapi is a thin net/http adapter over an *middb.Engine: it
// decodes requests, calls the engine, and encodes responses. It holds no
// business logic of its own.
//
// Routing uses the standard library's Go 1.22+ pattern-based ServeMux;
// no third-party router is wired here, since nothing in the retrieved
// example pack pulls one in (see DESIGN.md).
package httpapi
