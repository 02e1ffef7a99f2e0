package im

import "sync"

// Registry 维护 用户 -> 连接集合 以及 连接 -> 会话 的双向索引
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Session // userID -> connID -> session
	byConn map[string]*Session            // connID -> session
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]*Session),
		byConn: make(map[string]*Session),
	}
}

// Register 同一连接 ID 重复注册时以最后一次为准
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := s.ID()
	if prev, ok := r.byConn[id]; ok && prev.UserID != s.UserID {
		r.removeLocked(prev.UserID, id)
	}

	m := r.byUser[s.UserID]
	if m == nil {
		m = make(map[string]*Session)
		r.byUser[s.UserID] = m
	}
	m[id] = s
	r.byConn[id] = s
}

// Unregister 未知连接 ID 静默忽略
func (r *Registry) Unregister(connID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[connID]
	if !ok {
		return nil, false
	}
	r.removeLocked(s.UserID, connID)
	delete(r.byConn, connID)
	return s, true
}

func (r *Registry) removeLocked(userID, connID string) {
	if m := r.byUser[userID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// ConnectionsFor 返回用户当前所有在线连接，无连接时返回空切片
func (r *Registry) ConnectionsFor(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := r.byUser[userID]
	out := make([]*Session, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Lookup(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byConn[connID]
	return s, ok
}

// Identities 返回指定角色的在线用户，role 为空时返回全部
func (r *Registry) Identities(role string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byUser))
	for userID, m := range r.byUser {
		for _, s := range m {
			if role == "" || s.Role == role {
				out = append(out, userID)
				break
			}
		}
	}
	return out
}

func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.byConn))
	for _, s := range r.byConn {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
