package dto

// AdminLoginReq 管理员共享密码登录
type AdminLoginReq struct {
	Password string `json:"password" binding:"required"`
}

// TokenDTO 令牌响应
type TokenDTO struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
