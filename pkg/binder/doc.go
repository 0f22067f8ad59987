// Package binder decodes HTTP request data into Go structs.
//
// Each binder has the signature func(*http.Request, any) error and is meant to
// be passed to handler.Wrap. Three sources are supported:
//
//   - JSON: strict body decoding (unknown fields and trailing data rejected)
//   - Query: URL query parameters via `query:"name"` tags
//   - Path: router path parameters via `path:"name"` tags and an extractor
//
// Query and path binders understand strings, signed and unsigned integers,
// booleans, and pointers to those. A missing parameter leaves the field at
// its zero value, so pointers distinguish "absent" from "zero".
//
// Every failure wraps one of the package sentinels; IsBindingError tells the
// HTTP layer to answer 400.
package binder
