// errors/errors.go
package errors

import "errors"

// Pipeline errors. Every stage of the request pipeline rejects with one of
// these so controllers and middleware can map them to distinct status codes.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrTokenExpired       = errors.New("token expired")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrLimiterUnavailable = errors.New("rate limiter unavailable")
	ErrCacheUnavailable   = errors.New("cache unavailable")
	ErrInvalidationFailed = errors.New("cache invalidation failed")
	ErrStoreUnavailable   = errors.New("shared state store unavailable")
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInternalServer    = errors.New("internal server error")
	ErrDatabaseOperation = errors.New("database operation failed")
)
