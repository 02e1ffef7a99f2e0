package api

import "Portal/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	AuthHandler *handler.AuthHandler
	IMHandler   *handler.IMHandler
	WSHandler   *handler.WsHandler
}
