package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnw("failed to write response", "error", err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	var (
		unsupported *core.UnsupportedFileTypeError
		collision   *core.ToolNameCollisionError
		cfgErr      *core.ConfigurationError
		maxBytes    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrProductNotFound), errors.Is(err, core.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.As(err, &collision), errors.Is(err, core.ErrProductExists), errors.Is(err, core.ErrAlreadyQueued):
		return http.StatusConflict
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
