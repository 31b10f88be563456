package middleware

import (
	"harry_hype/internal/domain" // Importing domain models
	"net/http"                   // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// LocalUserMiddleware loads the User row behind the verified token. A valid
// token without a local user is rejected with 403.
func LocalUserMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey) // Get userID from context
		// Check if userID exists in context
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": true, "message": "Unauthorized"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Where("id = ?", userID).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": true, "message": "Invalid token or user not found"})
			return
		}
		c.Set(UserKey, &user) // Store the user for handlers
		c.Next()
	}
}

// CurrentUser returns the user stored by LocalUserMiddleware
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}
