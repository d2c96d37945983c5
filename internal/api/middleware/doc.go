// Package middleware provides the gin middleware stack for the explorer API.
//
// Middleware stack includes:
//   - CORS: cross-origin access for the host shell and the sandboxed frame
//   - RateLimit: per-IP token bucket rate limiting with idle eviction
//   - RequestLogger / Recovery: zap request logging and panic recovery
//
// The sandboxed frame loads with an opaque origin, which browsers send as
// the literal "null". List it in the allowed origins when the frame talks to
// the API directly.
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(ctx, middleware.DefaultRateLimitConfig()))
package middleware
