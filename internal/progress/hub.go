package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrConnectionClosed is returned by Send on an already-closed connection.
	ErrConnectionClosed = errors.New("progress: connection closed")
	// ErrConnectionNotFound is returned when a connection ID isn't registered.
	ErrConnectionNotFound = errors.New("progress: connection not found")
	// ErrSendBufferFull is returned when a connection's outgoing queue is full.
	ErrSendBufferFull = errors.New("progress: send buffer full")
)

// Hub tracks connected dashboard clients and their per-job subscriptions,
// and fans out Events to whoever's watching.
type Hub struct {
	connections map[string]*Connection
	jobSubs     map[string]map[string]bool // jobID -> set of connID

	mu     sync.RWMutex
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates an empty Hub and starts its dead-connection cleanup loop.
func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		connections: make(map[string]*Connection),
		jobSubs:     make(map[string]map[string]bool),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
	go h.cleanupLoop()
	return h
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn.ID] = conn
	h.logger.Info("progress: connection registered",
		zap.String("conn_id", conn.ID), zap.Int("total", len(h.connections)))
}

// Unregister removes a connection and its job subscriptions.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(connID)
}

func (h *Hub) unregisterLocked(connID string) {
	conn, exists := h.connections[connID]
	if !exists {
		return
	}
	for jobID := range conn.subscriptions {
		h.removeFromJobLocked(jobID, connID)
	}
	delete(h.connections, connID)
	h.logger.Info("progress: connection unregistered",
		zap.String("conn_id", connID), zap.Int("total", len(h.connections)))
}

// Subscribe attaches connID to jobID's fan-out list.
func (h *Hub) Subscribe(connID, jobID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, exists := h.connections[connID]
	if !exists {
		return ErrConnectionNotFound
	}
	conn.Subscribe(jobID)
	if h.jobSubs[jobID] == nil {
		h.jobSubs[jobID] = make(map[string]bool)
	}
	h.jobSubs[jobID][connID] = true
	return nil
}

// Unsubscribe detaches connID from jobID's fan-out list.
func (h *Hub) Unsubscribe(connID, jobID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, exists := h.connections[connID]
	if !exists {
		return ErrConnectionNotFound
	}
	conn.Unsubscribe(jobID)
	h.removeFromJobLocked(jobID, connID)
	return nil
}

func (h *Hub) removeFromJobLocked(jobID, connID string) {
	if subs, exists := h.jobSubs[jobID]; exists {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(h.jobSubs, jobID)
		}
	}
}

// BroadcastToJob delivers event to every connection subscribed to its job
// ID, returning how many received it.
func (h *Hub) BroadcastToJob(event *Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, exists := h.jobSubs[event.JobID]
	if !exists {
		return 0
	}
	count := 0
	for connID := range subs {
		if conn, exists := h.connections[connID]; exists {
			if err := conn.Send(event); err == nil {
				count++
			}
		}
	}
	return count
}

// Close stops the cleanup loop and closes every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	h.cancel()
	conns := make([]*Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	// Closed outside the lock: a connection's onClose callback may call
	// Unregister, which takes h.mu itself.
	for _, conn := range conns {
		conn.Close()
	}
	h.logger.Info("progress: hub closed")
}

func (h *Hub) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.cleanupDeadConnections()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) cleanupDeadConnections() {
	h.mu.Lock()
	timeout := 2 * pongWait
	now := time.Now()
	dead := make([]*Connection, 0)
	for _, conn := range h.connections {
		if conn.IsClosed() || now.Sub(conn.LastPing()) > timeout {
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		h.unregisterLocked(conn.ID)
	}
	remaining := len(h.connections)
	h.mu.Unlock()

	// Closed outside the lock: a connection's onClose callback may call
	// Unregister, which takes h.mu itself.
	for _, conn := range dead {
		conn.Close()
	}
	if len(dead) > 0 {
		h.logger.Info("progress: cleaned up dead connections",
			zap.Int("count", len(dead)), zap.Int("remaining", remaining))
	}
}
