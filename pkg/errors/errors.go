package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tyotrack/tyotrack-backend/pkg/i18n"
)

// Standard error types
var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")
	ErrInternal         = errors.New("internal server error")
	ErrValidation       = errors.New("validation error")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrUnprocessable    = errors.New("unprocessable entity")
	ErrInvalidTimeInput = errors.New("invalid time input")
)

// Timesheet error codes returned to clients
const (
	CodeInvalidTimeFormat       = "INVALID_TIME_FORMAT"
	CodeFutureDate              = "FUTURE_DATE"
	CodeBackdateExceeded        = "BACKDATE_EXCEEDED"
	CodeOverlapDetected         = "OVERLAP_DETECTED"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	MessageKey string            `json:"-"` // i18n key
	Params     map[string]string `json:"-"` // i18n interpolation
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Localize returns the message in the locale stored on ctx
func (e *AppError) Localize(ctx context.Context) string {
	if e.MessageKey == "" {
		return e.Message
	}
	params := e.Params
	if key, ok := e.Params[paramResourceKey]; ok {
		params = make(map[string]string, len(e.Params))
		for k, v := range e.Params {
			params[k] = v
		}
		params["resource"] = resourceName(key, func(k string) string {
			return i18n.TFromContext(ctx, k)
		})
	}
	return i18n.TFromContext(ctx, e.MessageKey, params)
}

// paramResourceKey holds the untranslated resource key so the name can be
// resolved in the caller's locale.
const paramResourceKey = "resource_key"

func resourceName(key string, translate func(string) string) string {
	name := translate("resources." + key)
	if name == "resources."+key {
		return key
	}
	return name
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewWithKey creates a new AppError whose message comes from the i18n catalogue
func NewWithKey(code string, messageKey string, statusCode int, params ...map[string]string) *AppError {
	var p map[string]string
	if len(params) > 0 {
		p = params[0]
	}
	return &AppError{
		Code:       code,
		Message:    i18n.T(messageKey, p),
		MessageKey: messageKey,
		Params:     p,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// ============================================================================
// COMMON ERRORS
// ============================================================================

func NotFound(resource string) *AppError {
	name := resourceName(resource, func(k string) string { return i18n.T(k) })
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", name),
		MessageKey: "errors.not_found",
		Params:     map[string]string{"resource": name, paramResourceKey: resource},
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		MessageKey: "errors.unauthorized",
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		MessageKey: "errors.forbidden",
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		MessageKey: "errors.bad_request",
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		MessageKey: "errors.conflict",
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		MessageKey: "errors.internal",
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		MessageKey: "errors.validation_failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Code:       "TOKEN_EXPIRED",
		Message:    "token has expired",
		MessageKey: "errors.token_expired",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Code:       "TOKEN_INVALID",
		Message:    "invalid token",
		MessageKey: "errors.token_invalid",
		StatusCode: http.StatusUnauthorized,
	}
}

// ============================================================================
// TIMESHEET ERRORS
// ============================================================================

// InvalidTimeFormat reports a clock value that is not HH:mm.
func InvalidTimeFormat(field, value string) *AppError {
	e := NewWithKey(CodeInvalidTimeFormat, "errors.invalid_time_format", http.StatusBadRequest)
	e.Err = ErrInvalidTimeInput
	return e.WithDetails(map[string]string{field: value})
}

// FutureDate reports a segment dated after today.
func FutureDate(date string) *AppError {
	e := NewWithKey(CodeFutureDate, "errors.future_date", http.StatusUnprocessableEntity)
	e.Err = ErrUnprocessable
	return e.WithDetails(map[string]string{"date": date})
}

// BackdateExceeded reports a segment older than the company backdate limit.
func BackdateExceeded(date string, limitDays int) *AppError {
	days := strconv.Itoa(limitDays)
	e := NewWithKey(CodeBackdateExceeded, "errors.backdate_exceeded", http.StatusUnprocessableEntity,
		map[string]string{"days": days})
	e.Err = ErrUnprocessable
	return e.WithDetails(map[string]string{"date": date, "limit_days": days})
}

// OverlapDetected reports a segment that intersects a live entry.
func OverlapDetected(date, conflictingEntryID string) *AppError {
	e := NewWithKey(CodeOverlapDetected, "errors.overlap_detected", http.StatusConflict,
		map[string]string{"date": date})
	e.Err = ErrConflict
	details := map[string]string{"date": date}
	if conflictingEntryID != "" {
		details["conflicting_entry_id"] = conflictingEntryID
	}
	return e.WithDetails(details)
}

// InvalidStatusTransition reports a status change the lifecycle forbids.
func InvalidStatusTransition(from, to string) *AppError {
	e := NewWithKey(CodeInvalidStatusTransition, "errors.invalid_status_transition", http.StatusConflict,
		map[string]string{"from": from, "to": to})
	e.Err = ErrConflict
	return e
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}

// CodeOf returns the AppError code carried by err, or "" if there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
