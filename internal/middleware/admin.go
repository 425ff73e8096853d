package middleware

import (
	"account_system/internal/domain" // User repository and roles
	"net/http"                       // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// AdminOnlyMiddleware checks the user's role from storage on each request
func AdminOnlyMiddleware(users domain.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := CurrentUserID(c) // Get userID from context
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errorCode": "UNAUTHORIZED", "errorMessage": "Unauthorized"})
			return
		}
		user, err := users.FindUserByID(c.Request.Context(), userID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Error("Admin check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"errorCode": "INTERNAL_SERVER_ERROR", "errorMessage": "Internal server error"})
			return
		}
		// Unknown users and non-admins are both forbidden
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"errorCode": "FORBIDDEN", "errorMessage": "Admin access required"})
			return
		}
		c.Next()
	}
}
