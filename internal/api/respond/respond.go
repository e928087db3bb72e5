// Package respond centralizes JSON response writing and the mapping from
// service errors to HTTP status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/memspace/memspace/internal/model"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError writes a standardized error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteServiceError translates the model error taxonomy to HTTP. Anything
// unrecognized is a 500 with a generic body; details stay in the log.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, model.ErrForbidden):
		WriteError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, model.ErrNotFound):
		WriteError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrInvalidCursor):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrAlreadyExists), errors.Is(err, model.ErrAlreadyMember), errors.Is(err, model.ErrCannotRemoveOwner):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrEmbeddingUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "embedding provider unavailable")
	default:
		log.Error().Err(err).Msg("unhandled service error")
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
