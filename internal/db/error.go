package db

import "errors"

// DuplicateKeyError is an error type for duplicate key errors
type DuplicateKeyError struct {
	Key     string
	Message string
}

func (e *DuplicateKeyError) Error() string {
	return e.Message
}

func IsDuplicateKeyError(err error) bool {
	var target *DuplicateKeyError
	return errors.As(err, &target)
}

// Not found Error
type NotFoundError struct {
	Key     string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// InsufficientBalanceError is returned when a conditional balance update finds
// a bucket that can not cover the requested debit.
type InsufficientBalanceError struct {
	UserID  string
	Message string
}

func (e *InsufficientBalanceError) Error() string {
	return e.Message
}

func IsInsufficientBalanceError(err error) bool {
	var target *InsufficientBalanceError
	return errors.As(err, &target)
}

// RateLimitExceededError is returned when a sliding window already holds the maximum number of hits.
type RateLimitExceededError struct {
	Key     string
	Message string
}

func (e *RateLimitExceededError) Error() string {
	return e.Message
}

func IsRateLimitExceededError(err error) bool {
	var target *RateLimitExceededError
	return errors.As(err, &target)
}

// LockHeldError is returned when a job lease is owned by someone else and has not expired.
type LockHeldError struct {
	Name    string
	Message string
}

func (e *LockHeldError) Error() string {
	return e.Message
}

func IsLockHeldError(err error) bool {
	var target *LockHeldError
	return errors.As(err, &target)
}
