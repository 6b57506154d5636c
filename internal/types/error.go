package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
	ExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"
	BadRequest           ErrorCode = "BAD_REQUEST"
	NotFound             ErrorCode = "NOT_FOUND"
	Unauthorized         ErrorCode = "UNAUTHORIZED"

	InsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	TierAlreadyActive   ErrorCode = "TIER_ALREADY_ACTIVE"
	CooldownNotElapsed  ErrorCode = "COOLDOWN_NOT_ELAPSED"
	InvalidStakeState   ErrorCode = "INVALID_STAKE_STATE"
	NothingToClaim      ErrorCode = "NOTHING_TO_CLAIM"
	BelowMinimum        ErrorCode = "BELOW_MINIMUM"
	InvalidWallet       ErrorCode = "INVALID_WALLET"
	RateLimited         ErrorCode = "RATE_LIMITED"
	UnknownEventType    ErrorCode = "UNKNOWN_EVENT_TYPE"
	UnknownBurnType     ErrorCode = "UNKNOWN_BURN_TYPE"
	UnknownStakeTier    ErrorCode = "UNKNOWN_STAKE_TIER"
	JobAlreadyRunning   ErrorCode = "JOB_ALREADY_RUNNING"
)

func (c ErrorCode) String() string {
	return string(c)
}

// Error is returned by the service layer. Invariant violations carry a
// client status code and a specific ErrorCode.
type Error struct {
	StatusCode int
	ErrorCode  ErrorCode
	Err        error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(statusCode int, errorCode ErrorCode, err error) *Error {
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        err,
	}
}

func NewErrorWithMsg(statusCode int, errorCode ErrorCode, msg string) *Error {
	return NewError(statusCode, errorCode, errors.New(msg))
}

func NewInternalServiceError(err error) *Error {
	return NewError(http.StatusInternalServerError, InternalServiceError, err)
}

// NewConflictError builds the 409 error used for the ledger invariant violations.
func NewConflictError(code ErrorCode, format string, args ...any) *Error {
	return NewError(http.StatusConflict, code, fmt.Errorf(format, args...))
}

// AsError extracts *Error from err, or nil.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	e := AsError(err)
	return e != nil && e.ErrorCode == code
}
