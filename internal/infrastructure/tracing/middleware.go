package tracing

import (
	"github.com/gin-gonic/gin"
)

// HTTPMiddleware tags every request with a trace id. A well-formed incoming
// X-Trace-ID is kept so callers can correlate; anything else is replaced.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := TraceID(c.GetHeader(Header))
		if !Valid(string(traceID)) {
			traceID = New()
		}

		c.Request = c.Request.WithContext(WithTraceID(c.Request.Context(), traceID))
		c.Header(Header, string(traceID))
		c.Next()
	}
}
