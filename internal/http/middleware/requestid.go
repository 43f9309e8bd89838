// Package middleware contains the Gin middleware shared by every route of the
// podcast API: correlation IDs, access logging, panic recovery, metrics,
// idempotency, rate limiting, bearer auth and security headers.
//
// Recommended order (see httpapi.RegisterRoutes):
//
//	RequestID → Logger/RedactingLogger → Recovery → Metrics →
//	IdempotencyValidator → RateLimiter → SecurityHeaders
//
// Everything after RequestID can rely on RequestIDFrom, and everything after
// the access logger can rely on LoggerFrom returning a request-scoped logger.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID carries the correlation ID on requests and responses.
const HeaderRequestID = "X-Request-ID"

const (
	ctxKeyRequestID = "requestID"

	// Inbound IDs longer than this are replaced rather than echoed into logs.
	maxRequestIDLen = 128
)

// RequestID reuses the caller's X-Request-ID when it is a plausible token and
// mints a UUID otherwise. The ID is echoed on the response and stored in the
// Gin context for RequestIDFrom.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation ID of the current request, or "" when
// RequestID did not run.
func RequestIDFrom(c *gin.Context) string {
	if rid := c.GetString(ctxKeyRequestID); rid != "" {
		return rid
	}
	return c.Writer.Header().Get(HeaderRequestID)
}

// validRequestID accepts 1..maxRequestIDLen visible ASCII characters, which
// keeps control characters and whitespace out of headers and log lines.
func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] > '~' {
			return false
		}
	}
	return true
}
