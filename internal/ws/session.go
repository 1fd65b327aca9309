package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rectmon/internal/hub"
	"rectmon/internal/models"
)

// Server→client message kinds.
const (
	MsgTypeInitialData     = "initial_data"
	MsgTypeRectifierUpdate = "rectifier_update"
	MsgTypeLatestData      = "latest_data"
)

// Client→server message kinds.
const MsgTypeRequestLatest = "request_latest"

// Message is the framed payload exchanged with dashboard clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Conn is the subset of *websocket.Conn a session needs; narrowed for tests.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Broadcaster is the hub surface a session subscribes to.
type Broadcaster interface {
	Subscribe() *hub.Subscription
	Unsubscribe(sub *hub.Subscription)
}

// ReadingSource answers on-demand latest queries against the store.
type ReadingSource interface {
	LatestSummary(ctx context.Context) (*models.ReadingSummary, error)
}

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Session represents one live dashboard client: it forwards hub broadcasts
// to the transport in publish order and answers request_latest queries
// directly from the store, independent of the broadcast stream.
type Session struct {
	conn        Conn
	broadcaster Broadcaster
	source      ReadingSource
	logger      *zap.Logger

	sub  *hub.Subscription
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

// NewSession builds a session around an accepted connection.
func NewSession(conn Conn, broadcaster Broadcaster, source ReadingSource, logger *zap.Logger) *Session {
	return &Session{
		conn:        conn,
		broadcaster: broadcaster,
		source:      source,
		logger:      logger,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
	}
}

// Run subscribes to the hub, delivers the initial snapshot, and pumps
// messages until the transport closes on either side.
func (s *Session) Run(ctx context.Context) {
	defer s.Close()

	s.sub = s.broadcaster.Subscribe()

	// Initial snapshot is enqueued before the forward loop starts, so every
	// session sees at least one reading (if the store has any) ahead of the
	// broadcast stream.
	s.sendSnapshot(ctx, MsgTypeInitialData, true)

	go s.writePump()
	go s.forwardLoop()
	s.readLoop(ctx)
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.broadcaster.Unsubscribe(s.sub)
		close(s.done)
		_ = s.conn.Close()
	})
}

// sendSnapshot queries the store for the latest summary and enqueues it
// under the given message kind. When the store is empty the initial snapshot
// is skipped; an explicit request still gets a null-data reply.
func (s *Session) sendSnapshot(ctx context.Context, msgType string, skipWhenEmpty bool) {
	summary, err := s.source.LatestSummary(ctx)
	if err != nil || summary == nil {
		if err != nil {
			s.logger.Debug("no snapshot available", zap.Error(err))
		}
		if skipWhenEmpty {
			return
		}
		s.enqueue(Message{Type: msgType, Data: nil})
		return
	}
	s.enqueue(Message{Type: msgType, Data: summary})
}

// forwardLoop relays hub deliveries in the order received.
func (s *Session) forwardLoop() {
	for {
		select {
		case <-s.done:
			return
		case summary, ok := <-s.sub.Readings():
			if !ok {
				return
			}
			s.enqueue(Message{Type: MsgTypeRectifierUpdate, Data: summary})
		}
	}
}

// readLoop handles client-initiated requests. Unrecognized or malformed
// inbound frames are silently ignored.
func (s *Session) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Debug("session read closed", zap.Error(err))
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))

		var req Message
		if err := json.Unmarshal(payload, &req); err != nil {
			continue
		}
		if req.Type == MsgTypeRequestLatest {
			s.sendSnapshot(ctx, MsgTypeLatestData, false)
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				s.Close()
				return
			}
		}
	}
}

// enqueue buffers a frame for the write pump, dropping when the client
// cannot keep up so the hub and other sessions are never delayed.
func (s *Session) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal session message", zap.Error(err))
		return
	}
	select {
	case s.send <- data:
	default:
		s.logger.Warn("dropping outgoing message, session buffer full",
			zap.String("type", msg.Type),
		)
	}
}
