package middleware

import (
	"Portal/internal/model"
	"Portal/internal/pkg/consts"
	"Portal/internal/pkg/redis"
	"Portal/internal/pkg/response"
	"Portal/internal/pkg/security"
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		signature, err := security.ExtractSignature(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		value, err := redis.GetValue(c.Request.Context(), consts.TokenBlacklistKey+signature)
		if err != nil {
			response.Fail(c, response.InternalServerError, "未知错误")
			c.Abort()
			return
		}
		if value != "" {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		claims, err := security.ValidateToken(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		c.Set(consts.CtxUserIDKey, claims.UserID)
		c.Set(consts.CtxRolesKey, claims.Roles)
		c.Set(consts.CtxTokenKey, tokenString)

		newCtx := context.WithValue(c.Request.Context(), consts.CtxUserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(newCtx)

		c.Next()
	}
}

// IsAdmin 当前请求是否由管理员发起
func IsAdmin(c *gin.Context) bool {
	for _, role := range c.GetStringSlice(consts.CtxRolesKey) {
		if role == model.RoleAdmin {
			return true
		}
	}
	return false
}
