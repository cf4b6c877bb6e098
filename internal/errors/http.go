// Package errors provides the HTTP error envelope shared by all server
// responses.
//
// Every non-2xx response carries the same JSON shape so clients can
// handle failures uniformly:
//
//	{"error": {"code": "NOT_FOUND", "message": "..."}}
package errors

import (
	"encoding/json"
	"net/http"
)

// Error codes used across server responses.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeAccessDenied     = "ACCESS_DENIED"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// HTTPError is the inner error payload.
type HTTPError struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// RequestID correlates the error with server logs, if available.
	RequestID string `json:"request_id,omitempty"`

	// Details carries optional structured context.
	Details map[string]any `json:"details,omitempty"`
}

// HTTPErrorResponse is the top-level error envelope.
type HTTPErrorResponse struct {
	Error HTTPError `json:"error"`
}

// WriteError writes a JSON error envelope with the given status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetails(w, status, code, message, nil)
}

// WriteErrorDetails writes a JSON error envelope with structured details.
func WriteErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// RespondWithError maps an arbitrary error to a 500 envelope.
//
// Handlers that can classify their errors should write a specific
// envelope instead; this is the fallback for unexpected failures.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	msg := "internal server error"
	if err != nil {
		msg = err.Error()
	}
	WriteError(w, http.StatusInternalServerError, CodeInternal, msg)
}
