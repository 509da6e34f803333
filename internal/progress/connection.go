package progress

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Connection wraps one dashboard client's websocket, tracking which job IDs
// it is currently subscribed to.
type Connection struct {
	ID   string
	conn *websocket.Conn
	send chan *Event

	mu            sync.RWMutex
	subscriptions map[string]bool
	lastPing      time.Time
	closed        bool
	onClose       func(connID string)

	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewConnection wraps conn, identified by id.
func NewConnection(id string, conn *websocket.Conn, logger *zap.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	conn.SetReadLimit(maxMessageSize)
	return &Connection{
		ID:            id,
		conn:          conn,
		send:          make(chan *Event, 256),
		subscriptions: make(map[string]bool),
		lastPing:      time.Now(),
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Send enqueues an event for delivery. It never blocks: if the client's send
// buffer is full, the event is dropped and logged.
func (c *Connection) Send(event *Event) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConnectionClosed
	}
	c.mu.RUnlock()

	select {
	case c.send <- event:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("progress: send buffer full, dropping event",
			zap.String("conn_id", c.ID), zap.String("job_id", event.JobID))
		return ErrSendBufferFull
	}
}

// Close shuts the connection down; safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancel()
	close(c.send)
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose(c.ID)
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SetOnClose registers a callback invoked exactly once, the first time
// Close runs. The Hub uses this to unregister a connection as soon as its
// pumps notice it has died, instead of waiting for the next cleanup sweep.
func (c *Connection) SetOnClose(f func(connID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = f
}

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Subscribe adds jobID to this connection's subscription set.
func (c *Connection) Subscribe(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[jobID] = true
}

// Unsubscribe removes jobID from this connection's subscription set.
func (c *Connection) Unsubscribe(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, jobID)
}

// IsSubscribed reports whether this connection watches jobID.
func (c *Connection) IsSubscribed(jobID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[jobID]
}

// Subscriptions returns the set of job IDs this connection watches.
func (c *Connection) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	jobIDs := make([]string, 0, len(c.subscriptions))
	for id := range c.subscriptions {
		jobIDs = append(jobIDs, id)
	}
	return jobIDs
}

func (c *Connection) updatePing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPing = time.Now()
}

// LastPing reports when the client's last pong was seen.
func (c *Connection) LastPing() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPing
}

// readPump drains and discards client frames (this feed is one-directional:
// server to client) but keeps the pong handler alive for liveness tracking.
func (c *Connection) readPump() {
	defer c.Close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.updatePing()
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("progress: websocket read error", zap.String("conn_id", c.ID), zap.Error(err))
			}
			return
		}
	}
}

// writePump delivers queued events and periodic pings until the connection
// is closed.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := event.ToJSON()
			if err != nil {
				c.logger.Error("progress: marshaling event failed", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("progress: websocket write failed", zap.String("conn_id", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Start launches the read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}
