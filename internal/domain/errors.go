package domain

import "errors"

// Error taxonomy surfaced to callers. Handlers map these onto HTTP statuses;
// everything else is an internal failure.
var (
	// ErrConflict means an active essay session already exists for the user.
	ErrConflict = errors.New("active essay already exists")

	// ErrNotFound means no active session or no such record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTopic means the topic failed validation.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrRateLimited means the per-user model request quota was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstream means the store or model runtime is unreachable. Fatal for
	// the current call, never retried inline.
	ErrUpstream = errors.New("upstream unavailable")
)
