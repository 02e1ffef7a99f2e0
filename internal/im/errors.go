package im

import "errors"

var (
	ErrUnknownIdentity = errors.New("用户不存在")
	ErrEmptyContent    = errors.New("消息内容不能为空")
	ErrSendFailed      = errors.New("消息发送失败")
	ErrMarkReadFailed  = errors.New("标记已读失败")
	ErrReaderMismatch  = errors.New("只能标记自己的已读状态")
	ErrNotMember       = errors.New("不是该会话成员")
	ErrMalformedEvent  = errors.New("事件格式错误")
	ErrUnknownEvent    = errors.New("未知事件")
	ErrConnClosed      = errors.New("连接已关闭")
	ErrSlowConsumer    = errors.New("连接发送队列已满")
)

// userMessage 返回可下发给客户端的简短错误描述
func userMessage(err error) string {
	for _, known := range []error{
		ErrEmptyContent, ErrReaderMismatch, ErrNotMember, ErrMalformedEvent, ErrUnknownEvent,
		ErrSendFailed, ErrMarkReadFailed,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "系统异常，请稍后重试"
}
