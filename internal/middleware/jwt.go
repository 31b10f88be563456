package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by the middleware
const (
	UserIDKey = "userID"
	UserKey   = "user"
)

// TokenVerifier resolves a bearer token to a user id
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// JWTAuthMiddleware validates bearer tokens and extracts the user id
func JWTAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": true, "message": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
		userID, err := verifier.Verify(tokenStr)              // Verify it with the identity provider
		if err != nil {
			// If verification fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": true, "message": "Invalid or expired token"})
			return
		}
		c.Set(UserIDKey, userID) // Store userID in context
		c.Next()                 // Proceed to the next handler
	}
}
