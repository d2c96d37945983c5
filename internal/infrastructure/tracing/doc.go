/*
Package tracing correlates log lines belonging to one request.

Every HTTP request gets a trace id, either the X-Trace-ID the caller sent or
a fresh req_ ULID. The id is echoed in the response header and carried in
the request context, where loggers pick it up with Field.

# Usage

	router.Use(tracing.HTTPMiddleware())

	logger.Info("Something happened", tracing.Field(c.Request.Context()))
*/
package tracing
