package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/tasklist/internal/apperr"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

type messageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes the failure envelope shared by every endpoint.
func WriteError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

var errBadBody = apperr.Invalid("Invalid request body")

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Invalid("Request body too large")
		}
		return errBadBody
	}
	return nil
}

// responder turns service errors into responses. Internal errors are logged
// in full; outside production their text is also echoed in "stack".
type responder struct {
	logger     *slog.Logger
	production bool
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	body := errorBody{Message: apperr.Message(err)}

	if kind == apperr.Internal {
		rs.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		if !rs.production {
			body.Stack = err.Error()
		}
	}
	writeJSON(w, kind.Status(), body)
}

// WriteErrorWithStack is WriteError with diagnostic detail attached.
func WriteErrorWithStack(w http.ResponseWriter, status int, msg, stack string) {
	writeJSON(w, status, errorBody{Message: msg, Stack: stack})
}
