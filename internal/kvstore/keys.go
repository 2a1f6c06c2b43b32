package kvstore

// Key schema for the shared ephemeral store. Everything essayd keeps in
// Redis lives under one of these prefixes.
const (
	sessionKeyPrefix   = "essay:active:"
	rateLimitKeyPrefix = "ratelimit:model:"
)

// SessionKey is the key holding a user's active essay session blob.
func SessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

// RateLimitKey is the key holding a user's sliding-window request set.
func RateLimitKey(userID string) string {
	return rateLimitKeyPrefix + userID
}
