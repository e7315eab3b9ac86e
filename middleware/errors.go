package middleware

import "errors"

var (
	// ErrNoClientKey is returned by a KeyFunc that cannot identify the caller
	ErrNoClientKey = errors.New("middleware: no client key in request")

	// ErrUnknownKeySource is returned by ParseKeyFunc for unsupported sources
	ErrUnknownKeySource = errors.New("middleware: unknown client key source")

	// ErrNilLimiter is returned when the middleware is built without a limiter
	ErrNilLimiter = errors.New("middleware: limiter is required")
)
