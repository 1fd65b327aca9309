package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rectmon/internal/hub"
	"rectmon/internal/models"
)

type fakeConn struct {
	inbound chan []byte
	texts   chan []byte
	closed  chan struct{}

	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 8),
		texts:   make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case payload := <-f.inbound:
		return websocket.TextMessage, payload, nil
	case <-f.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("use of closed connection")
	default:
	}
	if messageType == websocket.TextMessage {
		f.texts <- data
	}
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

type fakeSource struct {
	summary *models.ReadingSummary
	err     error
}

func (f *fakeSource) LatestSummary(context.Context) (*models.ReadingSummary, error) {
	return f.summary, f.err
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func nextFrame(t *testing.T, conn *fakeConn) frame {
	t.Helper()
	select {
	case data := <-conn.texts:
		var fr frame
		require.NoError(t, json.Unmarshal(data, &fr))
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outgoing frame")
		return frame{}
	}
}

func startSession(t *testing.T, conn *fakeConn, h *hub.Hub, source ReadingSource) *Session {
	t.Helper()
	session := NewSession(conn, h, source, zap.NewNop())
	go session.Run(context.Background())
	require.Eventually(t, func() bool {
		return h.SubscriberCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	t.Cleanup(session.Close)
	return session
}

func TestInitialSnapshotPrecedesBroadcasts(t *testing.T) {
	h := hub.New(zap.NewNop())
	conn := newFakeConn()
	source := &fakeSource{summary: &models.ReadingSummary{Timestamp: 1, SiteName: "A", StatusRealtime: "Normal"}}

	startSession(t, conn, h, source)
	h.Publish(models.ReadingSummary{Timestamp: 2, SiteName: "A", StatusRealtime: "Normal"})

	first := nextFrame(t, conn)
	assert.Equal(t, MsgTypeInitialData, first.Type)
	var initial models.ReadingSummary
	require.NoError(t, json.Unmarshal(first.Data, &initial))
	assert.Equal(t, int64(1), initial.Timestamp)

	second := nextFrame(t, conn)
	assert.Equal(t, MsgTypeRectifierUpdate, second.Type)
	var update models.ReadingSummary
	require.NoError(t, json.Unmarshal(second.Data, &update))
	assert.Equal(t, int64(2), update.Timestamp)
}

func TestEmptyStoreSkipsInitialSnapshot(t *testing.T) {
	h := hub.New(zap.NewNop())
	conn := newFakeConn()
	source := &fakeSource{err: errors.New("no data")}

	startSession(t, conn, h, source)
	h.Publish(models.ReadingSummary{Timestamp: 9, SiteName: "A"})

	first := nextFrame(t, conn)
	assert.Equal(t, MsgTypeRectifierUpdate, first.Type,
		"an empty store must not produce an initial frame")
}

func TestRequestLatestRepliesFromStore(t *testing.T) {
	h := hub.New(zap.NewNop())
	conn := newFakeConn()
	source := &fakeSource{summary: &models.ReadingSummary{Timestamp: 7, SiteName: "B", VdcOutput: 54.1}}

	startSession(t, conn, h, source)
	require.Equal(t, MsgTypeInitialData, nextFrame(t, conn).Type)

	conn.inbound <- []byte(`{"type":"request_latest"}`)

	reply := nextFrame(t, conn)
	assert.Equal(t, MsgTypeLatestData, reply.Type)
	var summary models.ReadingSummary
	require.NoError(t, json.Unmarshal(reply.Data, &summary))
	assert.Equal(t, int64(7), summary.Timestamp)
	assert.Equal(t, 54.1, summary.VdcOutput)
}

func TestRequestLatestOnEmptyStoreRepliesNull(t *testing.T) {
	h := hub.New(zap.NewNop())
	conn := newFakeConn()
	source := &fakeSource{err: errors.New("no data")}

	startSession(t, conn, h, source)
	conn.inbound <- []byte(`{"type":"request_latest"}`)

	reply := nextFrame(t, conn)
	assert.Equal(t, MsgTypeLatestData, reply.Type)
	assert.Equal(t, "null", string(reply.Data))
}

func TestMalformedInboundFramesIgnored(t *testing.T) {
	h := hub.New(zap.NewNop())
	conn := newFakeConn()
	source := &fakeSource{summary: &models.ReadingSummary{Timestamp: 3}}

	startSession(t, conn, h, source)
	require.Equal(t, MsgTypeInitialData, nextFrame(t, conn).Type)

	conn.inbound <- []byte(`{broken`)
	conn.inbound <- []byte(`{"type":"unknown_kind"}`)
	conn.inbound <- []byte(`{"type":"request_latest"}`)

	// Only the well-formed request produces a reply.
	reply := nextFrame(t, conn)
	assert.Equal(t, MsgTypeLatestData, reply.Type)
	select {
	case data := <-conn.texts:
		t.Fatalf("unexpected extra frame: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConnectionCloseUnsubscribesFromHub(t *testing.T) {
	h := hub.New(zap.NewNop())
	conn := newFakeConn()
	source := &fakeSource{summary: &models.ReadingSummary{Timestamp: 1}}

	session := startSession(t, conn, h, source)

	conn.Close()
	require.Eventually(t, func() bool {
		return h.SubscriberCount() == 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() {
		session.Close()
		session.Close()
	})
}
