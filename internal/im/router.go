package im

import (
	log "log/slog"
	"sync"
)

// Router 维护频道成员关系并负责事件扇出
type Router struct {
	registry *Registry

	mu     sync.RWMutex
	rooms  map[string]map[string]struct{} // channel -> connIDs
	joined map[string]map[string]struct{} // connID -> channels
}

func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		rooms:    make(map[string]map[string]struct{}),
		joined:   make(map[string]map[string]struct{}),
	}
}

// Join 未注册的连接不会被加入频道
func (r *Router) Join(connID, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 持锁检查，保证并发的 Purge 一定在加入之后执行
	if _, ok := r.registry.Lookup(connID); !ok {
		return false
	}

	members := r.rooms[channel]
	if members == nil {
		members = make(map[string]struct{})
		r.rooms[channel] = members
	}
	members[connID] = struct{}{}

	channels := r.joined[connID]
	if channels == nil {
		channels = make(map[string]struct{})
		r.joined[connID] = channels
	}
	channels[channel] = struct{}{}
	return true
}

func (r *Router) Leave(connID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, channel)
}

// Purge 连接销毁时退出其加入的全部频道
func (r *Router) Purge(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for channel := range r.joined[connID] {
		r.leaveLocked(connID, channel)
	}
	delete(r.joined, connID)
}

func (r *Router) leaveLocked(connID, channel string) {
	if members := r.rooms[channel]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, channel)
		}
	}
	if channels := r.joined[connID]; channels != nil {
		delete(channels, channel)
		if len(channels) == 0 {
			delete(r.joined, connID)
		}
	}
}

func (r *Router) Members(channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rooms[channel]))
	for connID := range r.rooms[channel] {
		out = append(out, connID)
	}
	return out
}

func (r *Router) ChannelsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.joined[connID]))
	for channel := range r.joined[connID] {
		out = append(out, channel)
	}
	return out
}

// EmitToChannel 返回实际投递的连接数，空频道静默返回 0
func (r *Router) EmitToChannel(channel string, ev Outbound) int {
	members := r.Members(channel)
	if len(members) == 0 {
		return 0
	}
	data, err := EncodeOutbound(ev)
	if err != nil {
		log.Error("IM 事件编码失败", "event", ev.EventName(), "err", err)
		return 0
	}
	delivered := 0
	for _, connID := range members {
		if r.deliver(connID, data) {
			delivered++
		}
	}
	return delivered
}

// EmitToConnection 连接已不存在时静默丢弃
func (r *Router) EmitToConnection(connID string, ev Outbound) bool {
	data, err := EncodeOutbound(ev)
	if err != nil {
		log.Error("IM 事件编码失败", "event", ev.EventName(), "err", err)
		return false
	}
	return r.deliver(connID, data)
}

func (r *Router) deliver(connID string, data []byte) bool {
	s, ok := r.registry.Lookup(connID)
	if !ok {
		return false
	}
	if err := s.send(data); err != nil {
		log.Debug("IM 投递丢弃", "connID", connID, "userID", s.UserID, "err", err)
		return false
	}
	return true
}
