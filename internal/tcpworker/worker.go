// Package tcpworker implements a self-reconnecting, line-oriented TCP
// client: the shape the amplifier adapter uses to talk to devices whose
// control protocol is plain terminator-delimited ASCII commands rather
// than UPnP SOAP or a JSON WebSocket dialect.
package tcpworker

import (
	"bufio"
	"context"
	"log"
	"net"
	"sync"
	"time"
)

// State mirrors wsworker's connection lifecycle.
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

// Handler receives lifecycle and line callbacks. All methods are called
// from the worker's single read goroutine.
type Handler interface {
	OnConnect(ctx context.Context, conn net.Conn) error
	OnLine(line string)
	OnDisconnect(err error)
}

// Worker dials a host:port TCP address, maintains the connection, and
// reconnects with exponential backoff on drop. Inbound data is split on
// Terminator (the amplifier's line-ending byte, typically '\r').
type Worker struct {
	addr       string
	terminator byte
	handler    Handler
	dialTimeout time.Duration

	mu    sync.RWMutex
	state State
	conn  net.Conn

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a worker for addr (host:port), splitting inbound data on
// terminator.
func New(addr string, terminator byte, dialTimeout time.Duration, handler Handler) *Worker {
	return &Worker{
		addr:        addr,
		terminator:  terminator,
		dialTimeout: dialTimeout,
		handler:     handler,
		state:       StateDisconnected,
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

// Stop disconnects and halts reconnection attempts.
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

// Send writes raw bytes to the current connection, if any.
func (w *Worker) Send(data []byte) error {
	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()

	if conn == nil {
		return net.ErrClosed
	}
	_, err := conn.Write(data)
	return err
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
		dialer := net.Dialer{Timeout: w.dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", w.addr)
		if err != nil {
			log.Printf("tcpworker: dial %s failed: %v", w.addr, err)
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
			log.Printf("tcpworker: OnConnect failed for %s: %v", w.addr, err)
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

func (w *Worker) readLoop(conn net.Conn) error {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString(w.terminator)
		if len(line) > 0 {
			trimmed := line
			if len(trimmed) > 0 && trimmed[len(trimmed)-1] == w.terminator {
				trimmed = trimmed[:len(trimmed)-1]
			}
			if trimmed != "" {
				w.handler.OnLine(trimmed)
			}
		}
		if err != nil {
			return err
		}
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
