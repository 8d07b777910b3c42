// Package shared centralizes the JSON envelopes of the HTTP layer so every
// handler answers with the same shape.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "arcop/pkg/domain-errors"
)

// ErrorBody is the error envelope. Validation errors carry the per-field
// detail; everything else is code and message only.
type ErrorBody struct {
	Code    string               `json:"code"`
	Message string               `json:"message"`
	Fields  []dErrors.FieldError `json:"fields,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded domain error to its HTTP status and envelope.
// Errors without a code become opaque 500s; their detail stays in the log.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		WriteJSON(w, http.StatusInternalServerError, errorEnvelope{Error: ErrorBody{
			Code:    string(dErrors.CodeInternal),
			Message: "internal error",
		}})
		return
	}
	WriteJSON(w, dErrors.ToHTTPStatus(de.Code), errorEnvelope{Error: ErrorBody{
		Code:    string(de.Code),
		Message: de.Message,
		Fields:  de.Fields,
	}})
}
