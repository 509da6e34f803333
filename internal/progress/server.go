package progress

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server upgrades HTTP requests to websockets and wires each connection
// into a Hub, subscribed to the job ID given in the request.
type Server struct {
	hub    *Hub
	logger *zap.Logger
}

// NewServer builds a Server around hub.
func NewServer(hub *Hub, logger *zap.Logger) *Server {
	return &Server{hub: hub, logger: logger}
}

// HandleWebSocket upgrades the request and subscribes the new connection to
// jobID's progress feed for its lifetime.
func (s *Server) HandleWebSocket(jobID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Error("progress: upgrade failed", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
			return
		}

		connID, err := uuid.NewRandom()
		if err != nil {
			s.logger.Error("progress: generating connection id failed", zap.Error(err))
			conn.Close()
			return
		}

		wsConn := NewConnection(connID.String(), conn, s.logger)
		wsConn.SetOnClose(s.hub.Unregister)
		s.hub.Register(wsConn)
		if err := s.hub.Subscribe(wsConn.ID, jobID); err != nil {
			s.logger.Error("progress: subscribe failed", zap.Error(err))
		}
		wsConn.Start()

		s.logger.Info("progress: websocket connection established",
			zap.String("conn_id", wsConn.ID), zap.String("job_id", jobID), zap.String("remote_addr", r.RemoteAddr))
	}
}

// Close shuts down the underlying hub.
func (s *Server) Close() {
	s.hub.Close()
}
