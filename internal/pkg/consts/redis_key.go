package consts

const (
	RateLimitMessageKey = "ratelimit:message:"
	TokenBlacklistKey   = "auth:token:blacklist:"
)
