package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP connections to live subscriber sessions and tracks
// them so shutdown can close every session instead of leaving them to run
// until process exit.
type Server struct {
	broadcaster Broadcaster
	source      ReadingSource
	logger      *zap.Logger
	upgrader    websocket.Upgrader

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// NewServer builds ws server.
func NewServer(broadcaster Broadcaster, source ReadingSource, logger *zap.Logger) *Server {
	return &Server{
		broadcaster: broadcaster,
		source:      source,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessions: make(map[*Session]struct{}),
	}
}

// HandleWS is the HTTP handler for /ws/rectifier.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	session := NewSession(conn, s.broadcaster, s.source, s.logger)
	s.track(session)
	go func() {
		session.Run(context.Background())
		s.untrack(session)
	}()
	s.logger.Info("dashboard client connected", zap.String("remote", r.RemoteAddr))
}

// Shutdown closes every live session. Called after the HTTP server has
// stopped accepting upgrades.
func (s *Server) Shutdown() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[*Session]struct{})
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	if len(sessions) > 0 {
		s.logger.Info("closed live sessions", zap.Int("count", len(sessions)))
	}
}

func (s *Server) track(session *Session) {
	s.mu.Lock()
	s.sessions[session] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(session *Session) {
	s.mu.Lock()
	delete(s.sessions, session)
	s.mu.Unlock()
}
