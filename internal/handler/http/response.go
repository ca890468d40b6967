package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/middleware"
)

// ErrorResponse writes a uniform error body.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// SuccessResponse writes the payload as-is.
func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// currentUserID pulls the authenticated user from the request context. A
// missing value means the auth middleware did not run; the request is
// rejected before any handler logic.
func currentUserID(c *gin.Context) (string, bool) {
	userIDAny, exists := c.Get(middleware.CtxUserID)
	if !exists {
		logrus.Warn("Handler: user ID not found in context, auth middleware missing?")
		return "", false
	}
	userID, ok := userIDAny.(string)
	if !ok || userID == "" {
		logrus.Error("Handler: user ID in context is not a non-empty string")
		return "", false
	}
	return userID, true
}
