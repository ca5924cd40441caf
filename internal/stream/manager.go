// Package stream owns the single push-channel connection to the origin
// server. It reconnects forever on loss with a fixed delay, decodes each
// broadcast into partial-instrument records, and hands decoded batches to a
// single consumer. Reconnect cycles are invisible to callers: the batch
// channel just goes quiet and resumes.
package stream

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"stocktail/internal/model"
)

// State is the connection lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// DefaultRetryDelay is the fixed reconnect delay. No backoff, no retry cap.
const DefaultRetryDelay = 3 * time.Second

// Manager maintains one push-channel connection for its whole lifetime.
// Connect starts the run loop; Disconnect is terminal.
type Manager struct {
	url string
	log *slog.Logger

	// RetryDelay overrides the fixed reconnect delay. Set before Connect.
	RetryDelay time.Duration

	// Optional hooks, set before Connect.
	OnReconnect    func()                       // a reconnect attempt is being scheduled
	OnBatch        func(records, malformed int) // a payload was decoded
	OnDroppedBatch func()                       // consumer fell behind, batch dropped

	dialer  *websocket.Dialer
	batches chan []model.StockUpdate

	state   atomic.Int32
	lastMsg atomic.Int64 // UnixNano of the last wire message

	mu       sync.Mutex
	conn     *websocket.Conn
	started  bool
	disposed bool
	stop     chan struct{}
}

// New creates a manager for the given ws:// endpoint.
func New(url string, log *slog.Logger) *Manager {
	return &Manager{
		url:        url,
		log:        log,
		RetryDelay: DefaultRetryDelay,
		dialer:     websocket.DefaultDialer,
		batches:    make(chan []model.StockUpdate, 16),
		stop:       make(chan struct{}),
	}
}

// Batches returns the channel carrying decoded update batches, in wire order.
func (m *Manager) Batches() <-chan []model.StockUpdate {
	return m.batches
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// LastMessage returns the arrival time of the most recent wire message,
// or the zero time if nothing has arrived yet.
func (m *Manager) LastMessage() time.Time {
	ns := m.lastMsg.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Connect starts the connection loop in its own goroutine. Calling it more
// than once, or after Disconnect, is a no-op.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.disposed {
		return
	}
	m.started = true
	go m.run()
}

// Disconnect closes the active connection and stops the loop for good.
// The close handler distinguishes this from a peer-initiated close, so no
// further reconnect is scheduled. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	close(m.stop)
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.Unlock()

	m.state.Store(int32(StateDisposed))
}

func (m *Manager) run() {
	for {
		if m.isDisposed() {
			return
		}
		m.state.Store(int32(StateConnecting))

		conn, resp, err := m.dialer.Dial(m.url, nil)
		if resp != nil {
			resp.Body.Close()
		}
		if err != nil {
			m.log.Warn("push channel dial failed", "url", m.url, "err", err)
			if m.scheduleRetry() {
				continue
			}
			return
		}

		m.mu.Lock()
		if m.disposed {
			m.mu.Unlock()
			conn.Close()
			return
		}
		m.conn = conn
		m.mu.Unlock()

		m.state.Store(int32(StateOpen))
		m.log.Info("push channel open", "url", m.url)

		m.readLoop(conn)

		if m.isDisposed() {
			return
		}
		m.state.Store(int32(StateClosed))
		if !m.scheduleRetry() {
			return
		}
	}
}

// readLoop reads and decodes messages until the connection drops.
func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if !m.isDisposed() {
				m.log.Warn("push channel read failed", "err", err)
			}
			return
		}
		m.lastMsg.Store(time.Now().UnixNano())

		updates, malformed, err := model.DecodeBroadcast(payload)
		if err != nil {
			// Unparseable payload: local diagnostic only, never an event.
			m.log.Warn("dropping malformed broadcast payload", "err", err)
			continue
		}
		if m.OnBatch != nil {
			m.OnBatch(len(updates), malformed)
		}
		if malformed > 0 {
			m.log.Warn("dropped malformed broadcast records", "count", malformed)
		}

		select {
		case m.batches <- updates:
		default:
			if m.OnDroppedBatch != nil {
				m.OnDroppedBatch()
			}
			m.log.Warn("batch channel full, dropping batch")
		}
	}
}

// scheduleRetry waits the fixed delay before the next attempt.
// Returns false when the manager was disposed while waiting.
func (m *Manager) scheduleRetry() bool {
	if m.OnReconnect != nil {
		m.OnReconnect()
	}
	select {
	case <-m.stop:
		return false
	case <-time.After(m.RetryDelay):
		return true
	}
}

func (m *Manager) isDisposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}
