package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownExchange = errors.New("unknown exchange")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrLockHeld        = errors.New("lock already held")
)
