package im

import (
	"Portal/internal/api/dto"
	"Portal/internal/model"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"
)

// Engine 实时在线与通知引擎
// 每条连接的事件由其读协程串行处理，不同连接之间互不阻塞
type Engine struct {
	store    Store
	registry *Registry
	router   *Router
	unread   *UnreadCounter
	archiver Archiver
	now      func() time.Time
}

type Option func(*Engine)

func WithArchiver(a Archiver) Option {
	return func(e *Engine) { e.archiver = a }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, opts ...Option) *Engine {
	registry := NewRegistry()
	e := &Engine{
		store:    store,
		registry: registry,
		router:   NewRouter(registry),
		unread:   NewUnreadCounter(store),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) Router() *Router { return e.router }

func (e *Engine) Unread() *UnreadCounter { return e.unread }

// Connect 握手：解析身份并注册连接，未知身份直接关闭连接
func (e *Engine) Connect(ctx context.Context, conn Conn, userID string) (*Session, error) {
	if userID == "" {
		conn.Close()
		return nil, ErrUnknownIdentity
	}
	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("resolve identity %s: %w", userID, err)
	}
	if user == nil {
		conn.Close()
		return nil, ErrUnknownIdentity
	}

	s := NewSession(conn, IdentityOf(user))
	e.registry.Register(s)
	log.InfoContext(ctx, "IM 连接已建立", "userID", s.UserID, "role", s.Role, "connID", s.ID())

	if s.IsAdmin() {
		e.router.Join(s.ID(), AdminsRoom)
		totals, err := e.unread.TotalsForAdmin(ctx, s.UserID)
		if err != nil {
			log.ErrorContext(ctx, "IM 计算管理员未读数失败", "userID", s.UserID, "err", err)
		} else {
			e.router.EmitToConnection(s.ID(), AdminUnreadCount{Totals: totals})
		}
	}
	return s, nil
}

// Disconnect 注销连接并退出全部频道，可重复调用
func (e *Engine) Disconnect(ctx context.Context, s *Session) {
	e.registry.Unregister(s.ID())
	e.router.Purge(s.ID())
	s.close()
	log.InfoContext(ctx, "IM 连接已断开", "userID", s.UserID, "connID", s.ID())
}

// HandleFrame 解析并处理一帧客户端数据，格式错误时回送 error 事件
func (e *Engine) HandleFrame(ctx context.Context, s *Session, data []byte) {
	ev, err := DecodeInbound(data)
	if err != nil {
		log.WarnContext(ctx, "IM 无法解析客户端事件", "userID", s.UserID, "connID", s.ID(), "err", err)
		e.replyError(s, err)
		return
	}
	e.Handle(ctx, s, ev)
}

func (e *Engine) Handle(ctx context.Context, s *Session, ev Inbound) {
	switch ev := ev.(type) {
	case JoinConversation:
		if err := e.requireMember(ctx, s, ev.ConversationID); err != nil {
			e.replyError(s, err)
			return
		}
		e.router.Join(s.ID(), ev.ConversationID)
		log.InfoContext(ctx, "IM 加入会话", "userID", s.UserID, "conversationID", ev.ConversationID)
	case LeaveConversation:
		e.router.Leave(s.ID(), ev.ConversationID)
		log.InfoContext(ctx, "IM 离开会话", "userID", s.UserID, "conversationID", ev.ConversationID)
	case SendMessage:
		if err := e.requireMember(ctx, s, ev.ConversationID); err != nil {
			e.replyError(s, err)
			return
		}
		if _, err := e.SendMessage(ctx, s.Identity, ev.ConversationID, ev.Content); err != nil {
			e.replyError(s, err)
		}
	case MarkAsRead:
		if ev.UserID != "" && ev.UserID != s.UserID {
			e.replyError(s, ErrReaderMismatch)
			return
		}
		if err := e.requireMember(ctx, s, ev.ConversationID); err != nil {
			e.replyError(s, err)
			return
		}
		if _, err := e.MarkAsRead(ctx, ev.ConversationID, s.UserID); err != nil {
			e.replyError(s, err)
		}
	default:
		panic(fmt.Sprintf("im: unhandled inbound event %T", ev))
	}
}

// SendMessage 持久化消息后广播到会话频道；客户发送时额外通知会话内的管理员
func (e *Engine) SendMessage(ctx context.Context, from Identity, convID, content string) (*dto.MessageDTO, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	msg := &model.Message{
		ConversationID: convID,
		SenderID:       from.UserID,
		Content:        content,
		Read:           false,
	}
	if err := e.store.CreateMessage(ctx, msg); err != nil {
		log.ErrorContext(ctx, "IM 消息写入失败", "userID", from.UserID, "conversationID", convID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if err := e.store.TouchConversation(ctx, convID, e.now()); err != nil {
		log.ErrorContext(ctx, "IM 会话时间更新失败", "conversationID", convID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	if e.archiver != nil {
		e.archiver.Archive(msg)
	}

	return e.Announce(ctx, msg, from), nil
}

// Announce 广播一条已持久化的消息，供非实时通道（如 HTTP）创建的消息复用
func (e *Engine) Announce(ctx context.Context, msg *model.Message, from Identity) *dto.MessageDTO {
	d := ToMessageDTO(msg)
	if d.Sender == nil {
		d.Sender = &dto.SenderDTO{ID: from.UserID, Name: from.Name, Role: from.Role}
	}
	e.router.EmitToChannel(msg.ConversationID, NewMessage{Message: d})

	if !from.IsAdmin() {
		e.notifyAdminsOfNewMessage(ctx, d)
	}
	return d
}

// notifyAdminsOfNewMessage 定向推送给管理员的每条连接，而非频道广播
func (e *Engine) notifyAdminsOfNewMessage(ctx context.Context, msg *dto.MessageDTO) {
	participants, err := e.store.FindConversationParticipants(ctx, msg.ConversationID)
	if err != nil {
		log.ErrorContext(ctx, "IM 获取会话参与者失败", "conversationID", msg.ConversationID, "err", err)
		return
	}
	client, ok := model.SoleClient(participants)
	if !ok {
		log.WarnContext(ctx, "IM 会话缺少唯一客户，跳过管理员通知", "conversationID", msg.ConversationID)
		return
	}

	var (
		counted bool
		count   int64
	)
	for _, admin := range participants {
		if !admin.IsAdmin() {
			continue
		}
		sessions := e.registry.ConnectionsFor(admin.ID)
		if len(sessions) == 0 {
			continue
		}
		if !counted {
			if count, err = e.unread.CountFromClient(ctx, msg.ConversationID, client.ID); err != nil {
				log.ErrorContext(ctx, "IM 统计未读数失败", "conversationID", msg.ConversationID, "err", err)
				return
			}
			counted = true
		}

		ev := AdminNewMessage{
			ConversationID: msg.ConversationID,
			Message:        ToMessageSummaryDTO(msg),
			UnreadCount:    count,
			ClientID:       client.ID,
			ClientName:     client.DisplayName(),
		}
		for _, s := range sessions {
			e.router.EmitToConnection(s.ID(), ev)
		}
	}
}

// MarkAsRead 将 readerID 以外发送者的未读消息置为已读，并同步管理员未读数
func (e *Engine) MarkAsRead(ctx context.Context, convID, readerID string) (int64, error) {
	count, err := e.store.BulkMarkRead(ctx, convID, readerID)
	if err != nil {
		log.ErrorContext(ctx, "IM 标记已读失败", "conversationID", convID, "userID", readerID, "err", err)
		return 0, fmt.Errorf("%w: %w", ErrMarkReadFailed, err)
	}

	e.router.EmitToChannel(convID, MessagesRead{ConversationID: convID, UserID: readerID, Count: count})

	if count > 0 {
		participants, err := e.store.FindConversationParticipants(ctx, convID)
		if err != nil {
			log.ErrorContext(ctx, "IM 获取会话参与者失败", "conversationID", convID, "err", err)
			return count, nil
		}
		for _, u := range participants {
			if u.IsAdmin() {
				_ = e.PushAdminTotals(ctx, u.ID)
			}
		}
	}
	return count, nil
}

// PushAdminTotals 重新计算管理员未读汇总并推送到其全部连接
func (e *Engine) PushAdminTotals(ctx context.Context, adminID string) error {
	sessions := e.registry.ConnectionsFor(adminID)
	if len(sessions) == 0 {
		return nil
	}
	totals, err := e.unread.TotalsForAdmin(ctx, adminID)
	if err != nil {
		log.ErrorContext(ctx, "IM 计算管理员未读数失败", "userID", adminID, "err", err)
		return err
	}
	ev := AdminUnreadCount{Totals: totals}
	for _, s := range sessions {
		e.router.EmitToConnection(s.ID(), ev)
	}
	return nil
}

// ReconcileAdmins 对所有在线管理员做一次未读数校准，弥补可能丢失的推送
func (e *Engine) ReconcileAdmins(ctx context.Context) int {
	pushed := 0
	for _, adminID := range e.registry.Identities(model.RoleAdmin) {
		if err := ctx.Err(); err != nil {
			return pushed
		}
		if err := e.PushAdminTotals(ctx, adminID); err == nil {
			pushed++
		}
	}
	return pushed
}

// NotifyUser 推送给某个用户的全部连接
func (e *Engine) NotifyUser(userID string, ev Outbound) int {
	delivered := 0
	for _, s := range e.registry.ConnectionsFor(userID) {
		if e.router.EmitToConnection(s.ID(), ev) {
			delivered++
		}
	}
	return delivered
}

func (e *Engine) BroadcastToAdmins(ev Outbound) int {
	return e.router.EmitToChannel(AdminsRoom, ev)
}

// Shutdown 关闭所有在线连接，各连接的读协程随后完成注销
func (e *Engine) Shutdown() {
	sessions := e.registry.Sessions()
	for _, s := range sessions {
		s.close()
	}
	log.Info("IM engine shut down", "sessions", len(sessions))
}

// requireMember 实时通道上的会话操作只对会话成员开放
func (e *Engine) requireMember(ctx context.Context, s *Session, convID string) error {
	ok, err := e.store.IsConversationMember(ctx, convID, s.UserID)
	if err != nil {
		log.ErrorContext(ctx, "IM 校验会话成员失败", "userID", s.UserID, "conversationID", convID, "err", err)
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		log.WarnContext(ctx, "IM 非会话成员的操作被拒绝", "userID", s.UserID, "conversationID", convID)
		return ErrNotMember
	}
	return nil
}

func (e *Engine) replyError(s *Session, err error) {
	e.router.EmitToConnection(s.ID(), ErrorEvent{Message: userMessage(err)})
}
