package handler

import (
	"Portal/internal/api/dto"
	"Portal/internal/pkg/consts"
	"Portal/internal/pkg/response"
	"Portal/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authSvc service.AuthService
}

func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 管理员共享密码登录
func (s *AuthHandler) Login(c *gin.Context) {
	var req dto.AdminLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.authSvc.AdminLogin(c.Request.Context(), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(consts.CtxTokenKey)
	if err := s.authSvc.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RealtimeToken 为客户签发实时连接令牌，未知用户会创建占位账号
func (s *AuthHandler) RealtimeToken(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.authSvc.IssueRealtimeToken(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
