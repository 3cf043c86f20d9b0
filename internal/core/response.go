package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"notesapp/internal/types"
)

const maxRequestBodySize = 1 << 20

// errCodeValidationInvalidJSON only exists at the HTTP boundary.
const errCodeValidationInvalidJSON types.ErrorCode = "validation_invalid_json"

// APIResponse wraps every successful body as {"data": ...}.
type APIResponse struct {
	Data any `json:"data,omitempty"`
}

// APIErrorResponse wraps every error body as {"error": {...}}.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an error. Wrapped causes are
// never included.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// JSON marshals data and writes it with status. A value that cannot be
// marshalled produces a 500 error body instead.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody(r, types.ErrCodeInternalUnexpected, "failed to marshal response", nil))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error renders err. An *types.AppError anywhere in the chain decides the
// status, code, message and details; any other error becomes a generic 500
// so driver or provider messages do not reach the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		JSON(w, r, http.StatusInternalServerError,
			errorBody(r, types.ErrCodeInternalUnexpected, "an unexpected error occurred", nil))
		return
	}
	JSON(w, r, appErr.HTTPStatus(), errorBody(r, appErr.Code, appErr.Message, appErr.Details))
}

func errorBody(r *http.Request, code types.ErrorCode, message string, details map[string]any) APIErrorResponse {
	return APIErrorResponse{Error: ErrorDetail{
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: types.GetRequestID(r.Context()),
	}}
}

// DecodeJSON strictly decodes a single JSON object of at most 1MB into dst.
// Unknown fields, trailing values and an empty body are rejected with
// validation_invalid_json.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return types.NewAppError(errCodeValidationInvalidJSON, "request body must contain a single JSON object", nil)
	}
	return nil
}

func decodeError(err error) *types.AppError {
	var (
		maxBytes  *http.MaxBytesError
		syntax    *json.SyntaxError
		typeError *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &maxBytes):
		return types.NewAppError(errCodeValidationInvalidJSON, "request body must not exceed 1MB", err)
	case errors.As(err, &syntax):
		return types.NewAppError(errCodeValidationInvalidJSON, "malformed JSON in request body", err)
	case errors.As(err, &typeError):
		return types.NewAppErrorWithDetails(errCodeValidationInvalidJSON, "invalid value for field", err,
			map[string]any{"field": typeError.Field, "expected": typeError.Type.String()})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return types.NewAppError(errCodeValidationInvalidJSON, "unknown field in request body: "+field, err)
	case errors.Is(err, io.EOF):
		return types.NewAppError(errCodeValidationInvalidJSON, "request body must not be empty", err)
	default:
		return types.NewAppError(errCodeValidationInvalidJSON, "invalid JSON in request body", err)
	}
}
