// Package errors provides the application error taxonomy for the market API.
// Every service-layer failure is an *AppError so handlers can render a stable
// code and status without leaking internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError carrying the same code, so that
// errors.Is(err, ErrStockNotFound) holds for copies made by Wrap/WithMessage.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Ledger errors.
var (
	ErrInsufficientBalance = &AppError{Code: "INSUFFICIENT_BALANCE", Message: "Insufficient wallet balance", StatusCode: http.StatusBadRequest}
)

// Stock registry errors.
var (
	ErrStockNotFound          = &AppError{Code: "STOCK_NOT_FOUND", Message: "Stock not found", StatusCode: http.StatusNotFound}
	ErrTierCapExceeded        = &AppError{Code: "TIER_CAP_EXCEEDED", Message: "Total shares exceed the tier maximum", StatusCode: http.StatusBadRequest}
	ErrAlreadyIssued          = &AppError{Code: "ALREADY_ISSUED", Message: "Issuer already has a live offering", StatusCode: http.StatusConflict}
	ErrTierUpgradeUnavailable = &AppError{Code: "TIER_UPGRADE_UNAVAILABLE", Message: "Stock does not meet the next tier thresholds", StatusCode: http.StatusConflict}
)

// Order execution errors.
var (
	ErrInvalidQuantity     = &AppError{Code: "INVALID_QUANTITY", Message: "Quantity must be a positive number of shares", StatusCode: http.StatusBadRequest}
	ErrSelfTradeNotAllowed = &AppError{Code: "SELF_TRADE_NOT_ALLOWED", Message: "Issuers cannot trade their own stock", StatusCode: http.StatusBadRequest}
	ErrOfferingExhausted   = &AppError{Code: "OFFERING_EXHAUSTED", Message: "No more primary shares released", StatusCode: http.StatusConflict}
	ErrHoldingNotFound     = &AppError{Code: "HOLDING_NOT_FOUND", Message: "No holding in this stock", StatusCode: http.StatusNotFound}
	ErrInsufficientShares  = &AppError{Code: "INSUFFICIENT_SHARES", Message: "Insufficient shares for this sale", StatusCode: http.StatusBadRequest}
)

// Dividend errors.
var (
	ErrEarningEventNotFound = &AppError{Code: "EARNING_EVENT_NOT_FOUND", Message: "Earning event not found", StatusCode: http.StatusNotFound}
)
