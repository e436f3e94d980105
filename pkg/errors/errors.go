package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application-level error with HTTP status code
type AppError struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Detail     string   `json:"detail,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	StatusCode int      `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches AppErrors by code so predefined errors work with errors.Is
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Common error codes
const (
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeForbidden         = "forbidden"
	ErrCodeNotFound          = "not_found"
	ErrCodeAccountNotFound   = "account_not_found"
	ErrCodeBadRequest        = "bad_request"
	ErrCodeValidation        = "validation_error"
	ErrCodeConflict          = "conflict"
	ErrCodeInvalidPassword   = "invalid_password"
	ErrCodeQuotaExceeded     = "quota_exceeded"
	ErrCodeChainNotSupported = "chain_not_supported"
	ErrCodeUnsupported       = "unsupported"
	ErrCodeTransactionFailed = "transaction_failed"
	ErrCodeRateLimited       = "rate_limited"
	ErrCodeInternalError     = "internal_error"
)

// Predefined errors
var (
	ErrUnauthorized = &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       ErrCodeForbidden,
		Message:    "Account not owned by user",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       ErrCodeNotFound,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       ErrCodeBadRequest,
		Message:    "Invalid request parameters",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidPassword = &AppError{
		Code:       ErrCodeInvalidPassword,
		Message:    "Invalid password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrTransactionFailed = &AppError{
		Code:       ErrCodeTransactionFailed,
		Message:    "Failed to send transaction",
		StatusCode: http.StatusBadRequest,
	}

	ErrRateLimited = &AppError{
		Code:       ErrCodeRateLimited,
		Message:    "Rate limit exceeded",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrInternalError = &AppError{
		Code:       ErrCodeInternalError,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrConflict = &AppError{
		Code:       ErrCodeConflict,
		Message:    "Account already exists",
		StatusCode: http.StatusConflict,
	}
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewWithDetail creates a new AppError with additional detail
func NewWithDetail(code, message, detail string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Detail:     detail,
		StatusCode: statusCode,
	}
}

// BadRequest creates a bad request error with the given message
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Validation creates a validation error listing every failed field
func Validation(issues []string) *AppError {
	return &AppError{
		Code:       ErrCodeValidation,
		Message:    "Validation Error",
		Errors:     issues,
		StatusCode: http.StatusBadRequest,
	}
}

// AccountNotFound creates an account not found error
func AccountNotFound(address string) *AppError {
	return &AppError{
		Code:       ErrCodeAccountNotFound,
		Message:    "Account not found",
		Detail:     fmt.Sprintf("address: %s", address),
		StatusCode: http.StatusNotFound,
	}
}

// QuotaExceeded creates the per-user account cap error
func QuotaExceeded(max int) *AppError {
	return &AppError{
		Code:       ErrCodeQuotaExceeded,
		Message:    fmt.Sprintf("Maximum number of accounts per user (%d) reached", max),
		StatusCode: http.StatusBadRequest,
	}
}

// UnsupportedChain creates an unsupported chain error
func UnsupportedChain(chain string) *AppError {
	return &AppError{
		Code:       ErrCodeChainNotSupported,
		Message:    "Unsupported chain",
		Detail:     fmt.Sprintf("chain: %s", chain),
		StatusCode: http.StatusBadRequest,
	}
}

// Unsupported creates an error for an operation the active custody backend refuses
func Unsupported(message string) *AppError {
	return New(ErrCodeUnsupported, message, http.StatusBadRequest)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == code
}
