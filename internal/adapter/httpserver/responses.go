// Package httpserver contains the HTTP handlers and middleware of the
// index service API. Handlers validate and enqueue; all indexing work is
// asynchronous.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/techresidents/indexsvc/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto the API surface: invalid input is
// the caller's fault, everything else is reported unavailable.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	code := "UNAVAILABLE"
	switch {
	case errors.Is(err, domain.ErrInvalidData):
		status = http.StatusBadRequest
		code = "INVALID_DATA"
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		code = "NOT_FOUND"
	}
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: err.Error()}})
}
