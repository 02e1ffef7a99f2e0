package api

import (
	"Portal/internal/api/config"
	"Portal/internal/api/middleware"
	"Portal/internal/model"
	"Portal/internal/pkg/logger"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup, cfg *config.Config) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/login", group.AuthHandler.Login)
			authGroup.POST("/logout", middleware.AuthMiddleware(), group.AuthHandler.Logout)
		}

		apiGroup.GET("/realtime/token", group.AuthHandler.RealtimeToken)
		apiGroup.GET("/im", group.WSHandler.Connect)

		convGroup := apiGroup.Group("/conversations")
		convGroup.Use(middleware.AuthMiddleware())
		{
			convGroup.POST("", group.IMHandler.CreateConversation)
			convGroup.GET("/user/:userId", group.IMHandler.GetUserConversations)
			convGroup.GET("/:conversationId/messages", group.IMHandler.GetMessages)
			convGroup.POST("/:conversationId/messages",
				middleware.RateLimitMiddleware("send", cfg.RateLimit.Max, time.Duration(cfg.RateLimit.Window)*time.Second),
				group.IMHandler.SendMessage,
			)
			convGroup.POST("/:conversationId/mark-read", group.IMHandler.MarkAsRead)

			// 需要 admin 角色
			adminGroup := convGroup.Group("/admin")
			adminGroup.Use(middleware.CheckRoles(model.RoleAdmin))
			{
				adminGroup.GET("", group.IMHandler.GetAdminConversations)
				adminGroup.GET("/unread", group.IMHandler.GetAdminUnread)
			}
		}
	}

	return r
}
