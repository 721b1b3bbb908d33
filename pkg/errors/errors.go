package errors

import (
	"errors"
	"fmt"
)

// AppError application error with a stable code and a player-facing message
type AppError struct {
	Code    int    // error code
	Message string // user visible message
	Err     error  // wrapped cause, optional
}

// Error implements error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap supports errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError creates an error
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap attaches a cause
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is reports whether err carries target's code
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode returns the error code, CodeServerError for non-AppErrors
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage returns the user visible message
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// ============== codes ==============

const (
	CodeSuccess = 0

	// auth 10000-10999
	CodeTokenInvalid = 10003
	CodeTokenExpired = 10004

	// params 11000-11999
	CodeInvalidParams = 11002

	// configuration 20000-20999
	CodeOddTileCount     = 20001
	CodeNotEnoughSymbols = 20002
	CodeInvalidBoard     = 20003
	CodeInvalidTiming    = 20004
	CodeInvalidScoring   = 20005
	CodeInvalidRange     = 20006

	// board / pool 21000-21999
	CodePoolExhausted = 21001
	CodeUnknownPool   = 21002
	CodeNotAcquired   = 21003

	// session 22000-22999
	CodeSessionNotFound  = 22001
	CodeTileNotFound     = 22002
	CodeTooManySessions  = 22003
	CodeSessionClosed    = 22004
	CodeNoGameInProgress = 22005

	// system 50000-50999
	CodeServerError = 50001
	CodeDBError     = 50002
)

// ============== predefined errors ==============

// auth
var (
	ErrTokenInvalid = NewError(CodeTokenInvalid, "invalid token")
	ErrTokenExpired = NewError(CodeTokenExpired, "token expired")
)

// params
var (
	ErrInvalidParams = NewError(CodeInvalidParams, "invalid parameters")
)

// configuration
var (
	ErrOddTileCount     = NewError(CodeOddTileCount, "rows*cols must be even")
	ErrNotEnoughSymbols = NewError(CodeNotEnoughSymbols, "not enough distinct symbols for the board")
	ErrInvalidBoard     = NewError(CodeInvalidBoard, "rows and cols must be positive")
	ErrInvalidTiming    = NewError(CodeInvalidTiming, "durations must not be negative")
	ErrInvalidScoring   = NewError(CodeInvalidScoring, "scores must not be negative")
	ErrInvalidRange     = NewError(CodeInvalidRange, "no even board fits the layout range")
)

// board / pool
var (
	ErrPoolExhausted = NewError(CodePoolExhausted, "tile pool exhausted")
	ErrUnknownPool   = NewError(CodeUnknownPool, "unknown tile pool")
	ErrNotAcquired   = NewError(CodeNotAcquired, "tile was not acquired from the pool")
)

// session
var (
	ErrSessionNotFound  = NewError(CodeSessionNotFound, "session not found")
	ErrTileNotFound     = NewError(CodeTileNotFound, "no tile at that position")
	ErrTooManySessions  = NewError(CodeTooManySessions, "too many sessions")
	ErrSessionClosed    = NewError(CodeSessionClosed, "session closed")
	ErrNoGameInProgress = NewError(CodeNoGameInProgress, "no game in progress")
)

// system
var (
	ErrServerError = NewError(CodeServerError, "internal server error")
	ErrDBError     = NewError(CodeDBError, "database error")
)
