package wsworker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	b := initialBackoff
	require.Equal(t, 1*time.Second, b)

	b = nextBackoff(b)
	require.Equal(t, 2*time.Second, b)

	b = nextBackoff(b)
	require.Equal(t, 4*time.Second, b)

	for i := 0; i < 10; i++ {
		b = nextBackoff(b)
	}
	require.Equal(t, maxBackoff, b)
}

type recordingHandler struct {
	mu          sync.Mutex
	connects    int32
	messages    [][]byte
	disconnects int32
	connected   chan struct{}
}

func (h *recordingHandler) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	atomic.AddInt32(&h.connects, 1)
	if h.connected != nil {
		select {
		case h.connected <- struct{}{}:
		default:
		}
	}
	return nil
}

func (h *recordingHandler) OnMessage(messageType int, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, data)
}

func (h *recordingHandler) OnDisconnect(err error) {
	atomic.AddInt32(&h.disconnects, 1)
}

func TestWorkerConnectsAndReceivesMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	handler := &recordingHandler{connected: make(chan struct{}, 1)}
	worker := New(url, handler)

	worker.Start(context.Background())
	defer worker.Stop()

	select {
	case <-handler.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never connected")
	}

	require.Eventually(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return len(handler.messages) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, StateConnected, worker.State())
}

func TestWorkerStopTransitionsToDisconnected(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	handler := &recordingHandler{connected: make(chan struct{}, 1)}
	worker := New(url, handler)
	worker.Start(context.Background())

	select {
	case <-handler.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never connected")
	}

	worker.Stop()
	require.Equal(t, StateDisconnected, worker.State())
}
