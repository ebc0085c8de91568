package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the canonical HTTP header used to propagate the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID string is stored.
	RequestIDKey = "request_id"

	maxRequestIDLen = 128
)

// RequestIDMiddleware ensures every request carries an identifier, echoed in
// the X-Request-ID response header and stored under RequestIDKey.
//
// An inbound X-Request-ID set by a proxy is reused when it is at most 128
// printable ASCII characters; anything else is replaced by a new UUID so
// clients cannot inject control characters into the logs.
//
// Register it right after gin.Recovery() so all downstream logging includes the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

// RequestID returns the identifier assigned by RequestIDMiddleware, or "" when
// the middleware did not run
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
