package binder

import (
	"net/http"
)

// Query binds URL query parameters to fields tagged with `query:"name"`.
// Untagged fields bind to their lowercased name; `query:"-"` skips a field.
// Missing parameters leave the field at its zero value.
//
// Example:
//
//	type ListRequest struct {
//		Page       int  `query:"page"`
//		PageSize   int  `query:"pageSize"`
//		UnreadOnly bool `query:"unreadOnly"`
//	}
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrFailedToParseQuery)
	}
}

// Path binds path parameters to fields tagged with `path:"name"`.
// The extractor resolves a parameter by name, e.g. chi.URLParam.
//
// Example:
//
//	binder.Path(chi.URLParam)
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		values := make(map[string][]string)
		for _, name := range tagNames(v, "path") {
			if value := extractor(r, name); value != "" {
				values[name] = []string{value}
			}
		}
		return bindToStruct(v, "path", values, ErrFailedToParsePath)
	}
}
