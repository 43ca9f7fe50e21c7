// Package wsworker implements a self-reconnecting WebSocket client: the
// shape used by every device adapter that talks to its device over a
// persistent duplex connection rather than one-shot SOAP calls.
package wsworker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is the worker's connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Handler receives lifecycle and message callbacks from the worker. All
// methods are called from the worker's single read goroutine, so
// implementations don't need their own locking around state they only
// touch from these callbacks.
type Handler interface {
	// OnConnect is called after a connection is established, before
	// messages are read. Returning an error tears the connection back
	// down and schedules a reconnect.
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	// OnMessage is called for each inbound text/binary message.
	OnMessage(messageType int, data []byte)
	// OnDisconnect is called after a connection is lost, before the
	// worker schedules its next reconnect attempt.
	OnDisconnect(err error)
}

// Worker dials url, maintains the connection, and reconnects with
// exponential backoff (1s, 2s, 4s, ... capped at 30s) whenever the
// connection drops or fails to establish.
type Worker struct {
	url     string
	handler Handler
	dialer  *websocket.Dialer

	mu    sync.RWMutex
	state State
	conn  *websocket.Conn

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a worker for url. Call Start to begin connecting.
func New(url string, handler Handler) *Worker {
	return &Worker{
		url:     url,
		handler: handler,
		dialer:  websocket.DefaultDialer,
		state:   StateDisconnected,
	}
}

// State returns the worker's current connection state.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Start begins the connect-and-reconnect loop in the background.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.stopCh != nil {
		w.mu.Unlock()
		return
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.run(ctx)
}

// Stop disconnects and halts reconnection attempts, waiting for the run
// loop to exit.
func (w *Worker) Stop() {
	w.mu.Lock()
	stopCh := w.stopCh
	doneCh := w.doneCh
	w.mu.Unlock()

	if stopCh == nil {
		return
	}

	w.setState(StateDisconnecting)
	close(stopCh)
	w.closeConn()
	<-doneCh
}

// Send writes a text message on the current connection, if any.
func (w *Worker) Send(data []byte) error {
	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()

	if conn == nil {
		return websocket.ErrCloseSent
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	backoff := initialBackoff
	for {
		select {
		case <-w.stopCh:
			w.closeConn()
			w.setState(StateDisconnected)
			return
		default:
		}

		w.setState(StateConnecting)
		conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
		if err != nil {
			log.Printf("wsworker: dial %s failed: %v", w.url, err)
			if !w.sleepOrStop(backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		w.mu.Lock()
		w.conn = conn
		w.state = StateConnected
		w.mu.Unlock()
		backoff = initialBackoff

		if err := w.handler.OnConnect(ctx, conn); err != nil {
			log.Printf("wsworker: OnConnect failed for %s: %v", w.url, err)
			w.closeConn()
			w.handler.OnDisconnect(err)
			if !w.sleepOrStop(backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		readErr := w.readLoop(conn)
		w.closeConn()
		w.setState(StateDisconnected)
		w.handler.OnDisconnect(readErr)

		select {
		case <-w.stopCh:
			return
		default:
		}

		if !w.sleepOrStop(backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

func (w *Worker) readLoop(conn *websocket.Conn) error {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		w.handler.OnMessage(messageType, data)
	}
}

func (w *Worker) closeConn() {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// sleepOrStop waits for d, returning false if Stop was called first.
func (w *Worker) sleepOrStop(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-w.stopCh:
		return false
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
