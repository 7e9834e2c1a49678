package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lewisedginton/mood_mate/internal/chat"
	"github.com/lewisedginton/mood_mate/internal/session_store"
	"github.com/lewisedginton/mood_mate/pkg/logger"
)

const (
	msgSessionNotFound = "Session not found"
	msgRouteNotFound   = "Route not found"
	msgInternal        = "Something went wrong!"
	msgInvalidJSON     = "Request body must be valid JSON"
	msgTooLarge        = "Request body too large"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps a service error to its status code and client-facing body.
// Unexpected errors never leak their cause.
func errorStatus(err error) (int, errorResponse) {
	var validation *chat.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorResponse{Error: validation.Error()}
	case errors.Is(err, session_store.ErrSessionNotFound):
		return http.StatusNotFound, errorResponse{Error: msgSessionNotFound}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, errorResponse{Error: msgTooLarge}
	default:
		return http.StatusInternalServerError, errorResponse{Error: msgInternal}
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context(), a.log).Error("Request failed",
			logger.HTTPMethodField(r.Method),
			logger.HTTPPathField(r.URL.Path),
			logger.ErrorField(err))
	}
	writeJSON(w, status, body)
}

func routeNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: msgRouteNotFound})
}

// decodeJSON reads a JSON body into dst. Malformed bodies become a 400 through a
// ValidationError; oversize bodies keep their *http.MaxBytesError.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return &chat.ValidationError{Field: "body", Message: msgInvalidJSON}
	}
	return nil
}
