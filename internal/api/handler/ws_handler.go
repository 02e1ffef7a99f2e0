package handler

import (
	"Portal/internal/api/config"
	"Portal/internal/api/middleware"
	"Portal/internal/im"
	"Portal/internal/pkg/response"
	"Portal/internal/pkg/security"
	"Portal/internal/service"
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WsHandler struct {
	engine   *im.Engine
	authSvc  service.AuthService
	cfg      config.RealtimeConfig
	upgrader websocket.Upgrader
}

func NewWsHandler(engine *im.Engine, authSvc service.AuthService, cfg config.RealtimeConfig, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		engine:  engine,
		authSvc: authSvc,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
	}
}

// Connect 建立实时连接，之后该连接上的事件全部交给 im.Engine 处理
func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权
	userID, err := s.resolveUser(c)
	if err != nil {
		log.WarnContext(c.Request.Context(), "WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}

	// 升级 Websocket
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "WS 协议升级失败", "err", err)
		return
	}

	conn := im.NewWSConn(ws, s.cfg.SendBuffer, time.Duration(s.cfg.WriteTimeout)*time.Second)
	ctx := context.WithoutCancel(c.Request.Context())

	sess, err := s.engine.Connect(ctx, conn, userID)
	if err != nil {
		log.WarnContext(ctx, "WS 握手被拒绝", "userID", userID, "err", err)
		return
	}
	defer s.engine.Disconnect(ctx, sess)

	conn.ReadLoop(func(data []byte) {
		s.engine.HandleFrame(ctx, sess, data)
	})
}

// resolveUser 优先使用 token，未强制令牌时允许直接携带 userId
func (s *WsHandler) resolveUser(c *gin.Context) (string, error) {
	token := c.Query("token")
	if token == "" {
		if s.cfg.RequireToken {
			return "", errors.New("token missing")
		}
		return c.Query("userId"), nil
	}

	claims, err := security.ValidateToken(token)
	if err != nil {
		return "", err
	}
	revoked, err := s.authSvc.IsRevoked(c.Request.Context(), token)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", errors.New("token revoked")
	}
	return claims.UserID, nil
}
