package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Marketplace & Settlement (MKT) ----

func ErrInsufficientFunds() *AppError {
	return New("MKT_001", "Insufficient balance", http.StatusBadRequest)
}

func ErrInvalidPrice() *AppError {
	return New("MKT_002", "Invalid price", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("MKT_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrEmptyBundle() *AppError {
	return New("MKT_004", "Listing must contain at least one gift", http.StatusBadRequest)
}

func ErrDuplicateDeposit() *AppError {
	return New("MKT_005", "Deposit already processed", http.StatusConflict)
}

// ---- Users & Ledger (USR) ----

func ErrUserExists() *AppError {
	return New("USR_001", "User already registered", http.StatusConflict)
}

func ErrInvalidAmount() *AppError {
	return New("USR_002", "Invalid amount", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidInitData() *AppError {
	return New("AUTH_001", "Invalid Telegram init data", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidCredentials() *AppError {
	return New("AUTH_003", "Invalid credentials", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_004", "Admin access required", http.StatusForbidden)
}

func ErrInitDataReplayed() *AppError {
	return New("AUTH_005", "Init data has already been used", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrCreditFailed(err error) *AppError {
	return Wrap("SYS_002", "Seller credit failed, settlement rolled back", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a 400 validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
