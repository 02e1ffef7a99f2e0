package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	JWTSecret         = "Portal"
	JWTExpirationTime = time.Hour * 24
)

// Configure 用配置覆盖默认的签名密钥与有效期
func Configure(secret string, expirationHours int) {
	if secret != "" {
		JWTSecret = secret
	}
	if expirationHours > 0 {
		JWTExpirationTime = time.Duration(expirationHours) * time.Hour
	}
}

// UserClaims 定义了我们 Token 中需要包含的业务信息
type UserClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

func (c *UserClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
