package im

import "Portal/internal/model"

// Conn 单条实时连接的传输层抽象
type Conn interface {
	ID() string
	Send(data []byte) error
	Close()
}

// Identity 已解析的用户身份
type Identity struct {
	UserID string
	Role   string
	Name   string
}

func IdentityOf(u *model.User) Identity {
	return Identity{UserID: u.ID, Role: u.Role, Name: u.DisplayName()}
}

func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

// Session 一条通过握手的连接，生命周期归 Registry 所有
type Session struct {
	Identity
	conn Conn
}

func NewSession(conn Conn, identity Identity) *Session {
	return &Session{Identity: identity, conn: conn}
}

func (s *Session) ID() string { return s.conn.ID() }

func (s *Session) send(data []byte) error { return s.conn.Send(data) }

func (s *Session) close() { s.conn.Close() }
