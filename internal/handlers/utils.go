package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/resumehub/apiserver/internal/auth"
	"github.com/resumehub/apiserver/internal/logging"
	"github.com/resumehub/apiserver/internal/services"
	"github.com/resumehub/apiserver/internal/store"
)

const maxBodyBytes = 1 << 20

// validationError carries a client-facing message and maps to 422.
type validationError struct {
	msg string
}

func (e validationError) Error() string { return e.msg }

func invalid(msg string) error {
	return validationError{msg: msg}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps domain errors to status codes. Anything it does not
// recognize is logged and reported as a generic failure to action.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr validationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.msg)
	case errors.Is(err, auth.ErrEmptyPassword):
		writeError(w, http.StatusUnprocessableEntity, auth.ErrEmptyPassword.Error())
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeError(w, http.StatusUnprocessableEntity, auth.ErrPasswordTooLong.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusBadRequest, "already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		logging.FromContext(r.Context()).Warn("login rejected")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		logging.FromContext(r.Context()).Error("request failed",
			slog.String("action", action),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return invalid("invalid request body")
	}
	return nil
}

// parseResumeID reads the resumeID path parameter. Ids are INTEGER columns, so
// anything outside 1..MaxInt32 names no row and reports store.ErrNotFound.
func parseResumeID(r *http.Request) (int, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "resumeID"), 10, 32)
	switch {
	case errors.Is(err, strconv.ErrRange):
		return 0, store.ErrNotFound
	case err != nil:
		return 0, invalid("invalid resume id")
	case id < 1:
		return 0, store.ErrNotFound
	}
	return int(id), nil
}
