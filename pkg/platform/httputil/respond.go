// Package httputil centralizes JSON response writing and domain error
// translation so every handler renders the same envelopes.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "saccoflow/pkg/domain-errors"
)

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// WriteError translates a coded domain error into an HTTP response.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, StatusOf(code), errorBody{
		Error:       string(code),
		Description: dErrors.MessageOf(err),
	})
}

// StatusOf maps a domain error code to an HTTP status.
func StatusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvalidActor, dErrors.CodeValidation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeAlreadyFinalized, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeSelfReview, dErrors.CodeSameReviewer:
		return http.StatusForbidden
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodePersistence, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
