package middleware

import (
	"Portal/internal/pkg/consts"
	"Portal/internal/pkg/redis"
	"Portal/internal/pkg/response"
	"Portal/internal/service"
	log "log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware 按客户端 IP 的固定窗口限流，Redis 异常时放行
func RateLimitMiddleware(scope string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max <= 0 {
			c.Next()
			return
		}

		key := consts.RateLimitMessageKey + scope + ":" + c.ClientIP()
		count, ttl, err := redis.IncrWithWindow(c.Request.Context(), key, window)
		if err != nil {
			log.WarnContext(c.Request.Context(), "限流计数失败，放行请求", "key", key, "err", err)
			c.Next()
			return
		}

		if count > int64(max) {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Round(time.Second)/time.Second)))
			response.Error(c, service.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
