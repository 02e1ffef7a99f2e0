package consts

const (
	CtxUserIDKey = "user_id"
	CtxRolesKey  = "roles"
	CtxTokenKey  = "token"
)

const (
	RealtimeTokenTTLHours = 2
)
