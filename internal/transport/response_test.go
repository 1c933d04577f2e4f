package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pitabwire/sdui/model"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"code": "demo"})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["code"] != "demo" {
		t.Errorf("code = %q, want demo", body["code"])
	}
}

func TestWriteError_statusMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{model.NewBadRequestError("bad"), http.StatusBadRequest, model.ErrBadRequest},
		{model.NewUnauthorizedError("who"), http.StatusUnauthorized, model.ErrUnauthorized},
		{model.NewForbiddenError("no"), http.StatusForbidden, model.ErrForbidden},
		{model.NewNotFoundError("gone"), http.StatusNotFound, model.ErrNotFound},
		{model.NewValidationError(nil), http.StatusUnprocessableEntity, model.ErrValidationError},
		{model.NewMissingRequiredDataError("empty"), http.StatusUnprocessableEntity, model.ErrMissingRequiredData},
		{model.NewRecursionLimitError(31, 30), http.StatusUnprocessableEntity, model.ErrRecursionLimitExceeded},
		{model.NewUnavailableError("down"), http.StatusServiceUnavailable, model.ErrUnavailable},
		{model.NewUnsupportedModelVariantError("chart"), http.StatusInternalServerError, model.ErrUnsupportedModelVariant},
		{fmt.Errorf("microapp %q: %w", "x", model.NewNotFoundError("gone")), http.StatusNotFound, model.ErrNotFound},
		{errors.New("dial tcp: connection refused"), http.StatusInternalServerError, model.ErrInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, nil, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body struct {
				Error model.ErrorEnvelope `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestWriteError_hidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, nil, errors.New("pq: password authentication failed"))

	var body struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if body.Error.Message != "An unexpected error occurred" {
		t.Errorf("message = %q, want generic message", body.Error.Message)
	}
}

func TestWriteError_traceID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/microapps/x", nil)
	r = r.WithContext(model.WithRequestContext(r.Context(), &model.RequestContext{TraceID: "trace-1"}))

	w := httptest.NewRecorder()
	WriteError(w, r, model.NewNotFoundError("gone"))

	var body struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if body.Error.TraceID != "trace-1" {
		t.Errorf("trace_id = %q, want trace-1", body.Error.TraceID)
	}
}
