package types

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// The prefix of a code decides its HTTP status; see HTTPStatus.
const (
	// Validation (400)
	ErrCodeInvalidArgument          ErrorCode = "validation_invalid_argument"
	ErrCodeInvalidSchedule          ErrorCode = "validation_invalid_schedule"
	ErrCodeValidationMissingField   ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidChannel ErrorCode = "validation_invalid_channel"

	// Not Found (404)
	ErrCodeNotFoundReminder ErrorCode = "not_found_reminder"
	ErrCodeNotFoundContact  ErrorCode = "not_found_contact"

	// Conflict (409)
	ErrCodeAlreadyDelivered ErrorCode = "conflict_already_delivered"
	ErrCodeReminderNotDue   ErrorCode = "conflict_reminder_not_due"

	// Routing (422)
	ErrCodeChannelUnregistered ErrorCode = "channel_unregistered"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB            ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected    ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamEmailProvider ErrorCode = "upstream_email_provider_unavailable"
	ErrCodeUpstreamSMSProvider   ErrorCode = "upstream_sms_provider_unavailable"
	ErrCodeUpstreamPush          ErrorCode = "upstream_push_unavailable"
	ErrCodeUpstreamUnavailable   ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited   ErrorCode = "upstream_rate_limited"

	// Recipient refused by the provider.
	ErrCodeEmailBlocked ErrorCode = "email_blocked"
)

// Codes whose status does not follow from their prefix.
var exactStatus = map[ErrorCode]int{
	ErrCodeChannelUnregistered: http.StatusUnprocessableEntity,
	ErrCodeEmailBlocked:        http.StatusForbidden,
	ErrCodeUpstreamRateLimited: http.StatusServiceUnavailable,
}

var prefixStatus = []struct {
	prefix string
	status int
}{
	{"validation_", http.StatusBadRequest},
	{"not_found_", http.StatusNotFound},
	{"conflict_", http.StatusConflict},
	{"upstream_", http.StatusBadGateway},
}

// HTTPStatus is the response status for c. Unknown and internal_ codes map
// to 500.
func (c ErrorCode) HTTPStatus() int {
	if status, ok := exactStatus[c]; ok {
		return status
	}
	for _, p := range prefixStatus {
		if strings.HasPrefix(string(c), p.prefix) {
			return p.status
		}
	}
	return http.StatusInternalServerError
}

// AppError carries a stable code and a client-safe message. Err is the
// internal cause and is never rendered.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of e whose details are e's merged with details.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	maps.Copy(merged, e.Details)
	maps.Copy(merged, details)
	cp := *e
	cp.Details = merged
	return &cp
}

// NewAppError creates an AppError. err may be nil.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewAppErrorWithDetails is NewAppError with client-visible details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}

// ErrorCodeOf returns the code of the first AppError in err's chain, or ""
// when the chain holds none.
func ErrorCodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsErrorCode reports whether err's chain contains an AppError with the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return err != nil && ErrorCodeOf(err) == code
}
