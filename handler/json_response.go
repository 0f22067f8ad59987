package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/forumnotify/pkg/binder"
	"github.com/dmitrymomot/forumnotify/pkg/validator"
)

// JSONResponse is the standard JSON response structure
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures JSON response
type JSONOption func(*jsonResponse)

// WithJSONStatus sets custom HTTP status code
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) {
		r.body.Meta = meta
	}
}

// JSON wraps v in the data envelope with status 200.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{
		status: http.StatusOK,
		body:   JSONResponse{Data: v},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError renders err in the error envelope. The status and code are
// derived from the error chain by ErrorStatus.
func JSONError(err error, opts ...JSONOption) Response {
	status, detail := ErrorStatus(err)
	r := &jsonResponse{
		status: status,
		body:   JSONResponse{Error: detail},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ErrorStatus classifies err into a status code and a client-safe detail.
// Validation errors win over HTTPError so field details reach the client.
// Unclassified errors are reported as 500 without their message.
func ErrorStatus(err error) (int, *ErrorDetail) {
	if ve := validator.ExtractValidationErrors(err); ve != nil {
		return http.StatusBadRequest, &ErrorDetail{
			Code:    "validation_error",
			Message: ve.Error(),
			Details: ve.Fields(),
		}
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, &ErrorDetail{
			Code:    httpErr.Key,
			Message: http.StatusText(httpErr.Code),
		}
	}

	if binder.IsBindingError(err) {
		return http.StatusBadRequest, &ErrorDetail{
			Code:    ErrBadRequest.Key,
			Message: err.Error(),
		}
	}

	return http.StatusInternalServerError, &ErrorDetail{
		Code:    ErrInternalServerError.Key,
		Message: http.StatusText(http.StatusInternalServerError),
	}
}
