package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader is the header clients use to authenticate with the proxy.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth returns a Gin middleware that requires the X-API-Key header to
// match the expected key. The comparison is constant-time. Requests fail
// before any upstream work happens.
func APIKeyAuth(expectedKey string) gin.HandlerFunc {
	expected := []byte(expectedKey)
	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(APIKeyHeader))
		if len(provided) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
			})
			return
		}
		c.Next()
	}
}
