package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const callerContextKey = "auth.caller"

// Middleware resolves the caller identity from an optional bearer token.
// Requests without an Authorization header proceed as anonymous; a
// present-but-invalid token is rejected so a caller can never silently
// degrade to anonymous visibility.
func Middleware(secret []byte, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format"})
			return
		}

		caller, err := ParseToken(secret, parts[1])
		if err != nil {
			logger.WithError(err).Warn("Rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// CallerFromContext returns the authenticated caller, or nil when the
// request is anonymous.
func CallerFromContext(c *gin.Context) *Caller {
	v, ok := c.Get(callerContextKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*Caller)
	return caller
}
