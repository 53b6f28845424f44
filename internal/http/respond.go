package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"contas/internal/core"
	"contas/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers are already sent
		return
	}
}

// writeError maps domain errors onto HTTP statuses and logs server-side failures.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, errType := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}

	logger := log.FromContext(r.Context())
	fields := log.NewFields().
		WithOperation(op).
		WithErrorType(errType).
		WithError(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
		resp.Error = http.StatusText(status)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errMalformed):
		return http.StatusBadRequest, log.ErrorTypeMalformed
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity, log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, log.ErrorTypeNotFound
	case core.IsPersistence(err):
		return http.StatusBadGateway, log.ErrorTypeDatabase
	default:
		return http.StatusInternalServerError, log.ErrorTypeInternal
	}
}
