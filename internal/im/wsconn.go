package im

import (
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxFrameSize = 64 * 1024
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// WSConn 基于 gorilla/websocket 的 Conn 实现
// 写操作只在 writeLoop 中进行，Send 不阻塞调用方
type WSConn struct {
	id           string
	ws           *websocket.Conn
	out          chan []byte
	done         chan struct{}
	once         sync.Once
	writeTimeout time.Duration
}

func NewWSConn(ws *websocket.Conn, buffer int, writeTimeout time.Duration) *WSConn {
	if buffer <= 0 {
		buffer = 256
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	c := &WSConn{
		id:           uuid.NewString(),
		ws:           ws,
		out:          make(chan []byte, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
	go c.writeLoop()
	return c
}

func (c *WSConn) ID() string { return c.id }

// Send 队列已满说明对端消费过慢，直接断开该连接
func (c *WSConn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		log.Warn("IM 连接发送队列已满，断开连接", "connID", c.id)
		c.Close()
		return ErrSlowConsumer
	}
}

func (c *WSConn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *WSConn) Done() <-chan struct{} { return c.done }

// ReadLoop 阻塞读取客户端帧直到连接断开
func (c *WSConn) ReadLoop(onFrame func([]byte)) {
	defer c.Close()

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("IM 连接异常断开", "connID", c.id, "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		onFrame(data)
	}
}

func (c *WSConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("IM 写入失败", "connID", c.id, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
