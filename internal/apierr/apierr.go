// Package apierr maps internal errors to stable wire error codes and HTTP
// statuses, the single place the rest of the codebase's error taxonomy
// meets the outside world.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/R3E-Network/envsensor-gateway/internal/cursor"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

// Code is a stable, machine-readable wire error code. Codes are the
// contract; messages may change freely.
type Code string

const (
	CodeMissingAPIKey      Code = "MISSING_API_KEY"
	CodeInvalidAPIKey      Code = "INVALID_API_KEY"
	CodeKeyRevoked         Code = "KEY_REVOKED"
	CodeMissingToken       Code = "MISSING_TOKEN"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeMissingField       Code = "MISSING_FIELD"
	CodeInvalidFormat      Code = "INVALID_FORMAT"
	CodeInvalidMAC         Code = "INVALID_MAC"
	CodeInvalidUUID        Code = "INVALID_UUID"
	CodeInvalidTimestamp   Code = "INVALID_TIMESTAMP"
	CodeInvalidBatchID     Code = "INVALID_BATCH_ID"
	CodeBatchSizeExceeded  Code = "BATCH_SIZE_EXCEEDED"
	CodeDeviceNotFound     Code = "DEVICE_NOT_FOUND"
	CodeNoReadings         Code = "NO_READINGS"
	CodeAPIKeyNotFound     Code = "API_KEY_NOT_FOUND"
	CodeDatabaseError      Code = "DATABASE_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
)

// Error is a typed application error carrying its wire code and HTTP
// status. Handlers construct and return these directly; the router edge
// is the only place that serializes them.
type Error struct {
	Status  int
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Sentinel constructors for the taxonomy named in the external interface
// contract. Validation errors surface their precise message; storage and
// internal errors never do.
func MissingAPIKey() *Error { return New(http.StatusUnauthorized, CodeMissingAPIKey, "missing API key") }
func InvalidAPIKey() *Error { return New(http.StatusUnauthorized, CodeInvalidAPIKey, "invalid API key") }
func KeyRevoked() *Error    { return New(http.StatusUnauthorized, CodeKeyRevoked, "API key has been revoked") }
func MissingToken() *Error  { return New(http.StatusUnauthorized, CodeMissingToken, "missing admin token") }
func InvalidToken() *Error  { return New(http.StatusUnauthorized, CodeInvalidToken, "invalid admin token") }
func Unauthorized() *Error  { return New(http.StatusUnauthorized, CodeUnauthorized, "unauthorized") }

func MissingField(field string) *Error {
	return New(http.StatusBadRequest, CodeMissingField, "missing required field: "+field)
}
func InvalidFormat(message string) *Error {
	return New(http.StatusBadRequest, CodeInvalidFormat, message)
}
func InvalidMAC() *Error {
	return New(http.StatusBadRequest, CodeInvalidMAC, "hardware_id is not a valid MAC address")
}
func InvalidUUID(field string) *Error {
	return New(http.StatusBadRequest, CodeInvalidUUID, field+" is not a valid UUID v4")
}
func InvalidTimestamp() *Error {
	return New(http.StatusBadRequest, CodeInvalidTimestamp, "timestamp_ms is out of the accepted range")
}
func InvalidBatchID() *Error {
	return New(http.StatusBadRequest, CodeInvalidBatchID, "batch_id must be 1-256 printable ASCII characters")
}
func BatchSizeExceeded() *Error {
	return New(http.StatusBadRequest, CodeBatchSizeExceeded, "batch exceeds the maximum of 100 readings")
}
func DeviceNotFound() *Error {
	return New(http.StatusNotFound, CodeDeviceNotFound, "device not found")
}
func NoReadings() *Error {
	return New(http.StatusNotFound, CodeNoReadings, "device has no readings")
}
func APIKeyNotFound() *Error {
	return New(http.StatusNotFound, CodeAPIKeyNotFound, "api key not found")
}
func DatabaseError() *Error {
	return New(http.StatusInternalServerError, CodeDatabaseError, "a storage error occurred")
}
func InternalError() *Error {
	return New(http.StatusInternalServerError, CodeInternalError, "an internal error occurred")
}

// envelope is the wire shape for every error response (spec §6).
type envelope struct {
	Error     Code   `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Write serializes err as the standard error envelope, filling in
// request_id, and sets the response status code. Any error not already a
// typed *Error is treated as an opaque internal failure so no internal
// detail leaks across the boundary.
func Write(w http.ResponseWriter, err error, requestID string) {
	apiErr := classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(envelope{Error: apiErr.Code, Message: apiErr.Message, RequestID: requestID})
}

// classify is a defensive fallback for handlers that propagate a raw
// collaborator error instead of wrapping it in a typed *Error. Storage
// failures never surface their underlying message (spec §7).
func classify(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, cursor.ErrInvalidCursor):
		return InvalidFormat("invalid cursor")
	case errors.Is(err, storage.ErrNotFound):
		return DeviceNotFound()
	case errors.Is(err, storage.ErrTransient):
		return DatabaseError()
	default:
		return InternalError()
	}
}
