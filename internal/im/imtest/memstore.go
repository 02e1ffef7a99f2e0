// Package imtest 提供 im 包测试用的内存存储与连接桩
package imtest

import (
	"Portal/internal/model"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore 内存版 im.Store，各 Err 字段非空时对应方法直接返回该错误
type MemStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	convs    map[string][]string
	touched  map[string]time.Time
	messages []*model.Message
	seq      int

	UserErr          error
	CreateErr        error
	TouchErr         error
	CountErr         error
	ParticipantsErr  error
	ConversationsErr error
	MarkErr          error
	MemberErr        error
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:   make(map[string]*model.User),
		convs:   make(map[string][]string),
		touched: make(map[string]time.Time),
	}
}

func (s *MemStore) AddUser(id, role, name string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{ID: id, Email: id + "@example.com", Role: role}
	if name != "" {
		u.Name = &name
	}
	s.users[id] = u
	return u
}

func (s *MemStore) AddConversation(id string, userIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[id] = append([]string(nil), userIDs...)
}

// AddMessage 直接写入一条消息，不触发任何通知
func (s *MemStore) AddMessage(convID, senderID, content string, read bool) *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &model.Message{ConversationID: convID, SenderID: senderID, Content: content, Read: read}
	s.insertLocked(m)
	return m
}

func (s *MemStore) Messages(convID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Message
	for _, m := range s.messages {
		if m.ConversationID == convID {
			res = append(res, *m)
		}
	}
	return res
}

func (s *MemStore) Touched(convID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.touched[convID]
	return t, ok
}

func (s *MemStore) FindUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UserErr != nil {
		return nil, s.UserErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *MemStore) CreateMessage(_ context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.insertLocked(msg)
	if u, ok := s.users[msg.SenderID]; ok {
		cp := *u
		msg.Sender = &cp
	}
	return nil
}

func (s *MemStore) insertLocked(m *model.Message) {
	s.seq++
	if m.ID == "" {
		m.ID = fmt.Sprintf("msg-%d", s.seq)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Date(2024, 1, 1, 0, 0, s.seq, 0, time.UTC)
	}
	cp := *m
	cp.Sender = nil
	s.messages = append(s.messages, &cp)
}

func (s *MemStore) TouchConversation(_ context.Context, convID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TouchErr != nil {
		return s.TouchErr
	}
	s.touched[convID] = at
	return nil
}

func (s *MemStore) CountUnreadMessages(_ context.Context, convID string, senderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CountErr != nil {
		return 0, s.CountErr
	}
	var n int64
	for _, m := range s.messages {
		if m.ConversationID == convID && m.SenderID == senderID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) CountUnreadExcept(_ context.Context, convID string, recipientID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CountErr != nil {
		return 0, s.CountErr
	}
	var n int64
	for _, m := range s.messages {
		if m.ConversationID == convID && m.SenderID != recipientID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) FindConversationParticipants(_ context.Context, convID string) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ParticipantsErr != nil {
		return nil, s.ParticipantsErr
	}
	return s.participantsLocked(convID), nil
}

func (s *MemStore) IsConversationMember(_ context.Context, convID string, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MemberErr != nil {
		return false, s.MemberErr
	}
	for _, id := range s.convs[convID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) participantsLocked(convID string) []model.User {
	var res []model.User
	for _, id := range s.convs[convID] {
		if u, ok := s.users[id]; ok {
			res = append(res, *u)
		}
	}
	return res
}

func (s *MemStore) FindConversationsForUser(_ context.Context, userID string) ([]*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ConversationsErr != nil {
		return nil, s.ConversationsErr
	}

	ids := make([]string, 0, len(s.convs))
	for id, members := range s.convs {
		for _, m := range members {
			if m == userID {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)

	res := make([]*model.Conversation, 0, len(ids))
	for _, id := range ids {
		conv := &model.Conversation{ID: id, Users: s.participantsLocked(id)}
		for _, m := range s.messages {
			if m.ConversationID == id && !m.Read {
				conv.Messages = append(conv.Messages, *m)
			}
		}
		res = append(res, conv)
	}
	return res, nil
}

func (s *MemStore) BulkMarkRead(_ context.Context, convID string, excludeSenderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MarkErr != nil {
		return 0, s.MarkErr
	}
	var n int64
	for _, m := range s.messages {
		if m.ConversationID == convID && m.SenderID != excludeSenderID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}
