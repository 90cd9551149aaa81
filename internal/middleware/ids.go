package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the context key for the request ID
	RequestIDKey = "request_id"

	// RequestIDHeader is the HTTP header name for the request ID
	RequestIDHeader = "X-Request-ID"

	// SessionKey is the context key for the selection session ID
	SessionKey = "session_id"

	// SessionHeader carries the selection session between the map client and the API
	SessionHeader = "X-Session-ID"

	// maxRequestIDLen bounds an upstream request ID before it reaches the logs.
	maxRequestIDLen = 128
)

// RequestID reuses an upstream X-Request-ID or generates one, and echoes it back.
// Upstream IDs that are too long or carry non-printable characters are replaced.
func RequestID() gin.HandlerFunc {
	return headerID(RequestIDHeader, RequestIDKey, printableID)
}

// Session attaches a selection session ID to every request. Clients echo the ID they
// received on the first response; a missing or malformed ID starts a new session.
func Session() gin.HandlerFunc {
	return headerID(SessionHeader, SessionKey, func(id string) bool {
		_, err := uuid.Parse(id)
		return err == nil
	})
}

// headerID keeps the incoming header value when valid accepts it, otherwise mints a
// UUID, then stores the ID under key and sets it on the response.
func headerID(header, key string, valid func(string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if !valid(id) {
			id = uuid.New().String()
		}

		c.Set(key, id)
		c.Writer.Header().Set(header, id)

		c.Next()
	}
}

func printableID(id string) bool {
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

// GetRequestID retrieves the request ID from the Gin context.
// Returns an empty string if not found.
func GetRequestID(c *gin.Context) string {
	return contextID(c, RequestIDKey)
}

// GetSession retrieves the session ID from the Gin context.
// Returns an empty string if not found.
func GetSession(c *gin.Context) string {
	return contextID(c, SessionKey)
}

func contextID(c *gin.Context, key string) string {
	if v, exists := c.Get(key); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
