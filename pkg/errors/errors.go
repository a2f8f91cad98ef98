package errors

import (
	"errors"
	"net/http"
)

// Standard error types
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("resource conflict")
	ErrInternal           = errors.New("internal server error")
	ErrTemporaryFailure   = errors.New("temporary failure")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("timeout")
	ErrRateLimited        = errors.New("rate limited")

	// Settlement error types
	ErrAlreadySettled     = errors.New("order already settled")
	ErrNotEscrowed        = errors.New("order has no escrow address")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrSubmissionFailed   = errors.New("ledger submission failed")
	ErrSettlementTimeout  = errors.New("settlement confirmation timed out")
	ErrSettlementFailed   = errors.New("settlement rejected by ledger")
	ErrSettlementInFlight = errors.New("settlement already in flight")
)

// AppError represents a structured application error with context
type AppError struct {
	Err        error
	StatusCode int
	Message    string
	Retryable  bool
	Context    map[string]interface{}
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds additional context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new AppError with the given parameters
func NewAppError(err error, message string, statusCode int, retryable bool) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Context:    make(map[string]interface{}),
	}
}

// IsRetryable checks if the error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr.Retryable
	}

	// By default, classify some standard errors as retryable
	return errors.Is(err, ErrTemporaryFailure) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// StatusCode maps an error to an HTTP status code
func StatusCode(err error) int {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	return http.StatusInternalServerError
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message, http.StatusNotFound, false)
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, false)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, false)
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrForbidden, message, http.StatusForbidden, false)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, false)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrInternal, message, http.StatusInternalServerError, true)
}

// NewTemporaryError creates a temporary error
func NewTemporaryError(message string) *AppError {
	return NewAppError(ErrTemporaryFailure, message, http.StatusServiceUnavailable, true)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(message string) *AppError {
	return NewAppError(ErrTimeout, message, http.StatusGatewayTimeout, true)
}

// NewRateLimitedError creates a rate limited error
func NewRateLimitedError(message string) *AppError {
	return NewAppError(ErrRateLimited, message, http.StatusTooManyRequests, true)
}

// NewAlreadySettledError creates an error for an order whose funds were
// already released or refunded. Not retryable: the terminal state is final.
func NewAlreadySettledError(message string) *AppError {
	return NewAppError(ErrAlreadySettled, message, http.StatusConflict, false)
}

// NewNotEscrowedError creates an error for a settlement attempt against an
// order with no escrow address
func NewNotEscrowedError(message string) *AppError {
	return NewAppError(ErrNotEscrowed, message, http.StatusPreconditionFailed, false)
}

// NewInvalidStateError creates an error for a disallowed state transition
func NewInvalidStateError(message string) *AppError {
	return NewAppError(ErrInvalidState, message, http.StatusConflict, false)
}

// NewSubmissionError creates an error for a failed ledger submission.
// Retryable: no order state is mutated before confirmation is observed.
func NewSubmissionError(message string) *AppError {
	return NewAppError(ErrSubmissionFailed, message, http.StatusBadGateway, true)
}

// NewSettlementTimeoutError creates an error for a confirmation wait that
// exhausted its poll budget. Retryable by the same authorized actor.
func NewSettlementTimeoutError(message string) *AppError {
	return NewAppError(ErrSettlementTimeout, message, http.StatusGatewayTimeout, true)
}

// NewSettlementFailedError creates an error for a transaction the ledger
// rejected outright
func NewSettlementFailedError(message string) *AppError {
	return NewAppError(ErrSettlementFailed, message, http.StatusBadGateway, false)
}

// NewSettlementInFlightError creates an error for a settlement attempt made
// while a prior attempt on the same order is still awaiting confirmation
func NewSettlementInFlightError(message string) *AppError {
	return NewAppError(ErrSettlementInFlight, message, http.StatusConflict, true)
}
