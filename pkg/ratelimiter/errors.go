package ratelimiter

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidTokenCount = errors.New("invalid token count")
	ErrStoreUnavailable  = errors.New("rate limit store unavailable")
)
