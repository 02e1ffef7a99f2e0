package handler

import (
	"Portal/internal/api/dto"
	"Portal/internal/api/middleware"
	"Portal/internal/pkg/consts"
	"Portal/internal/pkg/response"
	"Portal/internal/pkg/util"
	"Portal/internal/service"

	"github.com/gin-gonic/gin"
)

type IMHandler struct {
	imService service.IMService
}

func NewIMHandler(imService service.IMService) *IMHandler {
	return &IMHandler{imService: imService}
}

// CreateConversation 获取或创建两人会话
func (s *IMHandler) CreateConversation(c *gin.Context) {
	var req dto.CreateConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Fail(c, response.BadRequest, err.Error())
		return
	}

	res, err := s.imService.GetOrCreateConversation(c.Request.Context(), req.UserID1, req.UserID2)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetAdminConversations 当前管理员的会话列表
func (s *IMHandler) GetAdminConversations(c *gin.Context) {
	adminID := c.GetString(consts.CtxUserIDKey)
	res, err := s.imService.GetAdminConversations(c.Request.Context(), adminID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetAdminUnread 当前管理员的未读汇总
func (s *IMHandler) GetAdminUnread(c *gin.Context) {
	adminID := c.GetString(consts.CtxUserIDKey)
	res, err := s.imService.GetAdminUnreadTotals(c.Request.Context(), adminID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetUserConversations 只能查看自己的会话，管理员除外
func (s *IMHandler) GetUserConversations(c *gin.Context) {
	userID := c.Param("userId")
	if userID != c.GetString(consts.CtxUserIDKey) && !middleware.IsAdmin(c) {
		response.Error(c, service.UnauthorizedError)
		return
	}
	res, err := s.imService.GetUserConversations(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *IMHandler) GetMessages(c *gin.Context) {
	callerID := c.GetString(consts.CtxUserIDKey)
	res, err := s.imService.GetMessages(c.Request.Context(), callerID, middleware.IsAdmin(c), c.Param("conversationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SendMessage 发送消息，与实时通道的 sendMessage 效果一致
func (s *IMHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Fail(c, response.BadRequest, err.Error())
		return
	}

	senderID := c.GetString(consts.CtxUserIDKey)
	res, err := s.imService.SendMessage(c.Request.Context(), senderID, c.Param("conversationId"), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *IMHandler) MarkAsRead(c *gin.Context) {
	userID := c.GetString(consts.CtxUserIDKey)
	res, err := s.imService.MarkAsRead(c.Request.Context(), userID, c.Param("conversationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
