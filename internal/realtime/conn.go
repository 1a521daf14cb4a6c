package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

// Conn is one live realtime connection. The registry, room manager and
// coordinators only see this interface; the websocket transport lives behind
// it so the core is testable without sockets.
type Conn interface {
	ID() uuid.UUID
	User() *models.User
	Send(data []byte) error
	Close() error
}

// WSConn is the gorilla/websocket backed Conn. One per browser tab or
// device. Reads and writes run on separate goroutines so a slow receiver
// cannot stall inbound handling.
type WSConn struct {
	id   uuid.UUID
	user *models.User
	ws   *websocket.Conn
	hub  *Hub

	mu     sync.Mutex
	send   chan []byte
	closed bool

	closeOnce sync.Once
	limiter   *rateLimiter
}

func newWSConn(ws *websocket.Conn, user *models.User, hub *Hub) *WSConn {
	ws.SetReadLimit(hub.opts.MaxMessageSize)
	return &WSConn{
		id:      uuid.New(),
		user:    user,
		ws:      ws,
		hub:     hub,
		send:    make(chan []byte, hub.opts.SendBuffer),
		limiter: newRateLimiter(hub.opts.RateLimitBurst, hub.opts.RateLimitRefill),
	}
}

func (c *WSConn) ID() uuid.UUID      { return c.id }
func (c *WSConn) User() *models.User { return c.user }

// Send enqueues an outbound frame. It never blocks: a full buffer means the
// receiver has stopped draining and the connection is treated as dead.
func (c *WSConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close tears the connection down. Safe to call multiple times; the second
// call is a no-op.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		c.hub.release(c)
		c.ws.Close()
	})
	return nil
}

func (c *WSConn) start() {
	go c.writePump()
	go c.readPump()
}

func (c *WSConn) readPump() {
	defer c.Close()

	heartbeat := c.hub.opts.HeartbeatInterval
	c.ws.SetReadDeadline(time.Now().Add(heartbeat))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(heartbeat))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Stringer("conn_id", c.id).Msg("read error")
			}
			return
		}

		// Any inbound event counts as liveness.
		c.ws.SetReadDeadline(time.Now().Add(heartbeat))

		if !c.limiter.allow() {
			c.hub.sendError(c, ErrProtocol, "rate limit exceeded")
			continue
		}

		c.hub.dispatch(c, data)
	}
}

func (c *WSConn) writePump() {
	pingPeriod := c.hub.opts.HeartbeatInterval * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
