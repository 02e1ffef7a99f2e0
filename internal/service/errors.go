package service

import (
	"Portal/internal/im"
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	TooManyRequests     = 429
	InternalServerError = 500
)

var (
	ErrParamInvalid         = errors.New("参数错误")
	ErrUserNotFound         = errors.New("用户不存在")
	ErrPasswordIncorrect    = errors.New("密码错误")
	ErrConversationNotFound = errors.New("会话不存在")
	ErrConversationSelf     = errors.New("不能与自己创建会话")
	ErrNotMember            = im.ErrNotMember
	ErrAdminTokenRefused    = errors.New("管理员不能申请实时令牌")
	ErrTooManyRequests      = errors.New("请求过于频繁，请稍后再试")
	UnauthorizedError       = errors.New("权限不足")
	UnExpectedError         = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:         BadRequest,
	ErrUserNotFound:         NotFound,
	ErrPasswordIncorrect:    Unauthorized,
	ErrConversationNotFound: NotFound,
	ErrConversationSelf:     BadRequest,
	ErrNotMember:            Forbidden,
	ErrAdminTokenRefused:    Forbidden,
	ErrTooManyRequests:      TooManyRequests,
	UnauthorizedError:       Unauthorized,
	UnExpectedError:         InternalServerError,
	im.ErrUnknownIdentity:   NotFound,
	im.ErrEmptyContent:      BadRequest,
	im.ErrReaderMismatch:    Forbidden,
	im.ErrSendFailed:        InternalServerError,
	im.ErrMarkReadFailed:    InternalServerError,
}
