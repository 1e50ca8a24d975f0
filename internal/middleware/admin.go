package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const adminKey = "is_admin"

// AdminIdentity marks the request as admin when it carries
// "Authorization: Bearer <token>" matching the configured token. It never
// rejects; routes that need an admin add RequireAdmin. An empty token
// disables admin access.
func AdminIdentity(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token != "" {
			if bearer, ok := bearerToken(c.GetHeader("Authorization")); ok &&
				subtle.ConstantTimeCompare([]byte(bearer), []byte(token)) == 1 {
				c.Set(adminKey, true)
			}
		}
		c.Next()
	}
}

// RequireAdmin aborts with 401 unless AdminIdentity recognised the caller.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin authorization required"})
			return
		}
		c.Next()
	}
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(adminKey)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
