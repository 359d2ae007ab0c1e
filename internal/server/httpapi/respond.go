package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/authvault/authvault/internal/common"
)

// apiError is the payload nested under "error" in every failure response.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

// writeAuthError maps a service error onto an HTTP response. Credential and
// token failures collapse into one 401 per endpoint so a caller cannot probe
// which check rejected it; code is the 401 error code for that endpoint.
func writeAuthError(w http.ResponseWriter, err error, code, message string) {
	switch {
	case errors.Is(err, common.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "email already registered")
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error())
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenRevoked),
		errors.Is(err, common.ErrWrongTokenType),
		errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, code, message)
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
