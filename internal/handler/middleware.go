package handler

import (
	"strings"

	"rocket-backend/internal/dashboard"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// AuthMiddleware 读取上游网关写入的用户标识，缺失时返回 401
func AuthMiddleware(header string) gin.HandlerFunc {
	if header == "" {
		header = "X-User-ID"
	}
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(header))
		if userID == "" {
			respondError(c, dashboard.ErrAuthRequired)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
