package tcpworker

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu        sync.Mutex
	lines     []string
	connected chan struct{}
}

func (h *recordingHandler) OnConnect(ctx context.Context, conn net.Conn) error {
	if h.connected != nil {
		select {
		case h.connected <- struct{}{}:
		default:
		}
	}
	return nil
}

func (h *recordingHandler) OnLine(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, line)
}

func (h *recordingHandler) OnDisconnect(err error) {}

func TestWorkerReceivesTerminatedLines(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("PowerOn\rVolumeSet:42\r"))
		time.Sleep(200 * time.Millisecond)
	}()

	handler := &recordingHandler{connected: make(chan struct{}, 1)}
	worker := New(listener.Addr().String(), '\r', time.Second, handler)
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
		return len(handler.lines) == 2
	}, 2*time.Second, 10*time.Millisecond)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Equal(t, []string{"PowerOn", "VolumeSet:42"}, handler.lines)
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	b := initialBackoff
	b = nextBackoff(b)
	require.Equal(t, 2*time.Second, b)
	for i := 0; i < 10; i++ {
		b = nextBackoff(b)
	}
	require.Equal(t, maxBackoff, b)
}
