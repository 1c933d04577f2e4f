// Package transport contains the HTTP router, middleware chain, and request
// handlers of the microapp API.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pitabwire/sdui/model"
)

// statusForCode maps ErrorEnvelope codes to HTTP status codes.
var statusForCode = map[string]int{
	model.ErrBadRequest:              http.StatusBadRequest,
	model.ErrUnauthorized:            http.StatusUnauthorized,
	model.ErrForbidden:               http.StatusForbidden,
	model.ErrNotFound:                http.StatusNotFound,
	model.ErrValidationError:         http.StatusUnprocessableEntity,
	model.ErrMissingRequiredData:     http.StatusUnprocessableEntity,
	model.ErrMalformedBlock:          http.StatusUnprocessableEntity,
	model.ErrRecursionLimitExceeded:  http.StatusUnprocessableEntity,
	model.ErrUnsupportedModelVariant: http.StatusInternalServerError,
	model.ErrInternalError:           http.StatusInternalServerError,
	model.ErrUnavailable:             http.StatusServiceUnavailable,
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// WriteError writes err as a JSON ErrorEnvelope with the matching HTTP
// status. Errors that do not wrap an *ErrorEnvelope become a generic 500
// so internal details never reach the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var src *model.ErrorEnvelope
	ee := model.NewInternalError()
	if errors.As(err, &src) {
		ee = &model.ErrorEnvelope{Code: src.Code, Message: src.Message, Details: src.Details}
	}
	if r != nil {
		if rctx := model.RequestContextFrom(r.Context()); rctx != nil {
			ee.TraceID = rctx.TraceID
		}
	}

	status := statusForCode[ee.Code]
	if status == 0 {
		status = http.StatusInternalServerError
	}

	type errorResponse struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	WriteJSON(w, status, errorResponse{Error: ee})
}
