package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"aiaudit/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string             `json:"error"`
	Code           string             `json:"code"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error, status int) {
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(errors.InternalError),
	}

	var auditErr *errors.AuditError
	if stderrors.As(err, &auditErr) {
		resp.Code = string(auditErr.Code)
		resp.Details = auditErr.Details
		resp.SuggestedFixes = auditErr.SuggestedFixes
	}

	WriteJSON(w, resp, status)
}

// WriteAuditError writes an error with automatic status code mapping
func WriteAuditError(w http.ResponseWriter, err error) {
	WriteError(w, err, MapErrorToStatus(errors.CodeOf(err)))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.InputInvalid, errors.ConfigInvalid:
		return http.StatusBadRequest // 400
	case errors.Unauthorized:
		return http.StatusUnauthorized // 401
	case errors.NotFound:
		return http.StatusNotFound // 404
	case errors.RateLimited:
		return http.StatusTooManyRequests // 429
	case errors.ScanAborted:
		return http.StatusServiceUnavailable // 503
	case errors.UpstreamUnavailable:
		return http.StatusBadGateway // 502
	case errors.CatalogInvalid, errors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, &errors.AuditError{
		Code:    errors.InputInvalid,
		Message: message,
	}, http.StatusBadRequest)
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, &errors.AuditError{
		Code:    errors.NotFound,
		Message: message,
	}, http.StatusNotFound)
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string, err error) {
	WriteError(w, errors.New(errors.InternalError, message, err), http.StatusInternalServerError)
}
