package imtest

import (
	"errors"
	"sync"

	"github.com/goccy/go-json"
)

var errClosed = errors.New("fake conn closed")

// Frame 一帧已解码的下行事件
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// FakeConn 记录所有下行帧的 im.Conn 实现
type FakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool

	SendErr error
}

func NewFakeConn(id string) *FakeConn {
	return &FakeConn{id: id}
}

func (c *FakeConn) ID() string { return c.id }

func (c *FakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	if c.SendErr != nil {
		return c.SendErr
	}
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *FakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *FakeConn) Frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]Frame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f Frame
		if err := json.Unmarshal(raw, &f); err == nil {
			res = append(res, f)
		}
	}
	return res
}

// Named 返回指定事件名的帧
func (c *FakeConn) Named(event string) []Frame {
	var res []Frame
	for _, f := range c.Frames() {
		if f.Event == event {
			res = append(res, f)
		}
	}
	return res
}

func (c *FakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}
