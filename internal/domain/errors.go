package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidCombination  = errors.New("invalid portrait/build combination")
	ErrProviderFailure     = errors.New("provider failure")
	ErrContentBlocked      = errors.New("content blocked by safety filter")
	ErrNotConfigured       = errors.New("not configured")
	ErrStoreUnavailable    = errors.New("scene store unavailable")
	ErrDuplicateOperation  = errors.New("duplicate operation")
	ErrIncompleteStoryText = errors.New("incomplete story response")
)
