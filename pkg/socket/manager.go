// Package socket provides the client-side connection manager: a stable
// "send text / receive message" contract over an unreliable WebSocket.
// It reconnects with exponential backoff, queues outbound messages while
// disconnected, and dispatches inbound frames to subscribers.
package socket

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message mirrors the server's outbound chat frame.
type Message struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	Role         string `json:"role"`
	Timestamp    int64  `json:"timestamp"`
	ResponseTime int64  `json:"responseTime,omitempty"`
}

// outbound is the client -> server envelope.
type outbound struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Handler receives one inbound frame.
type Handler func(msg Message)

// Options tunes connection and reconnect behavior. Zero values take the
// defaults below.
type Options struct {
	// HandshakeTimeout bounds connection establishment, distinct from
	// reconnect backoff. Default 5s.
	HandshakeTimeout time.Duration

	// Quiescence is the pause between closing a prior socket and opening
	// a new one, to avoid rapid thrash. Default 100ms.
	Quiescence time.Duration

	// DrainInterval spaces out queued messages while draining onto a
	// fresh connection. Default 100ms.
	DrainInterval time.Duration

	// Reconnect backoff: delay starts at BackoffBase, multiplies by
	// BackoffFactor after every failed or closed attempt, capped at
	// BackoffMax. After MaxAttempts consecutive failures the manager
	// stops retrying. Defaults: 1s, 2, 30s, 10.
	BackoffBase   time.Duration
	BackoffFactor float64
	BackoffMax    time.Duration
	MaxAttempts   int

	// OnGiveUp is called once when the attempt budget is exhausted, so
	// callers can surface the failure instead of hanging silently.
	OnGiveUp func()
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 5 * time.Second
	}
	if o.Quiescence <= 0 {
		o.Quiescence = 100 * time.Millisecond
	}
	if o.DrainInterval <= 0 {
		o.DrainInterval = 100 * time.Millisecond
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffFactor <= 1 {
		o.BackoffFactor = 2
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	return o
}

type subscriber struct {
	id int
	fn Handler
}

// Manager owns one logical connection. At most one live socket exists at
// a time; a new Connect supersedes and closes any existing one.
type Manager struct {
	url    string
	opts   Options
	dialer *websocket.Dialer

	mu                 sync.Mutex
	conn               *websocket.Conn
	connecting         bool
	ready              bool
	attempts           int
	delay              time.Duration
	reconnectScheduled bool
	gaveUp             bool
	closed             bool
	pending            []string
	subs               []subscriber
	nextSubID          int

	// writeMu serializes writes; gorilla connections support one
	// concurrent writer only.
	writeMu sync.Mutex
}

// NewManager builds a manager for url (ws:// or wss://). It does not
// connect; call Connect or just Send.
func NewManager(url string, opts Options) *Manager {
	o := opts.withDefaults()
	return &Manager{
		url:    url,
		opts:   o,
		delay:  o.BackoffBase,
		dialer: &websocket.Dialer{HandshakeTimeout: o.HandshakeTimeout},
	}
}

// Connect starts a connection attempt. Idempotent: while an attempt is
// in flight further calls return immediately, so duplicate sockets are
// never created.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.closed || m.connecting || m.gaveUp {
		m.mu.Unlock()
		return
	}
	m.connecting = true
	m.ready = false
	prior := m.conn
	m.conn = nil
	m.mu.Unlock()

	go m.dial(prior)
}

func (m *Manager) dial(prior *websocket.Conn) {
	if prior != nil {
		prior.Close()
		time.Sleep(m.opts.Quiescence)
	}

	conn, resp, err := m.dialer.Dial(m.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		m.mu.Lock()
		m.connecting = false
		m.mu.Unlock()
		m.scheduleReconnect()
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.connecting = false
	m.ready = true
	m.attempts = 0
	m.delay = m.opts.BackoffBase
	m.mu.Unlock()

	go m.readLoop(conn)
	go m.drain(conn)
}

// readLoop dispatches inbound frames until the connection dies. Frames
// that fail to parse are dropped; the manager never crashes on them.
func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(conn)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		m.mu.Lock()
		subs := make([]subscriber, len(m.subs))
		copy(subs, m.subs)
		m.mu.Unlock()

		for _, s := range subs {
			s.fn(msg)
		}
	}
}

// drain sends queued messages in FIFO order, one at a time with a small
// spacing, onto a freshly opened connection. If the socket drops
// mid-drain the unsent remainder stays queued in original order.
func (m *Manager) drain(conn *websocket.Conn) {
	for {
		m.mu.Lock()
		if m.conn != conn || !m.ready || len(m.pending) == 0 {
			m.mu.Unlock()
			return
		}
		text := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		if err := m.write(conn, text); err != nil {
			m.mu.Lock()
			m.pending = append([]string{text}, m.pending...)
			m.mu.Unlock()
			m.handleClose(conn)
			return
		}

		time.Sleep(m.opts.DrainInterval)
	}
}

// Send transmits text immediately when connected, otherwise queues it
// and triggers a connection attempt. Blank input is a no-op.
func (m *Manager) Send(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	m.mu.Lock()
	if m.ready && m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		if err := m.write(conn, text); err != nil {
			m.mu.Lock()
			m.pending = append(m.pending, text)
			m.mu.Unlock()
			m.handleClose(conn)
		}
		return
	}

	m.pending = append(m.pending, text)
	connecting := m.connecting
	m.mu.Unlock()

	if !connecting {
		m.Connect()
	}
}

// Subscribe registers a handler invoked once per inbound frame, in
// arrival order. The returned function removes exactly this handler.
func (m *Manager) Subscribe(fn Handler) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Ready reports whether the socket is open and drained sends will go out
// immediately.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// GaveUp reports whether the reconnect attempt budget is exhausted.
func (m *Manager) GaveUp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gaveUp
}

// Close shuts the manager down permanently.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.ready = false
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (m *Manager) write(conn *websocket.Conn, text string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(outbound{Content: text, Timestamp: time.Now().UnixMilli()})
}

// handleClose runs when a socket read or write fails. Stale sockets that
// were already superseded by a newer Connect are ignored.
func (m *Manager) handleClose(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.ready = false
	m.mu.Unlock()

	conn.Close()
	m.scheduleReconnect()
}

// scheduleReconnect arms a single backoff timer. The delay grows by the
// configured factor up to the cap; after the attempt budget is spent the
// manager enters a terminal give-up state.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.closed || m.reconnectScheduled || m.connecting {
		m.mu.Unlock()
		return
	}
	if m.attempts >= m.opts.MaxAttempts {
		already := m.gaveUp
		m.gaveUp = true
		onGiveUp := m.opts.OnGiveUp
		m.mu.Unlock()
		if !already && onGiveUp != nil {
			onGiveUp()
		}
		return
	}
	m.attempts++
	d := m.delay
	next := time.Duration(float64(m.delay) * m.opts.BackoffFactor)
	if next > m.opts.BackoffMax {
		next = m.opts.BackoffMax
	}
	m.delay = next
	m.reconnectScheduled = true
	m.mu.Unlock()

	time.AfterFunc(d, func() {
		m.mu.Lock()
		m.reconnectScheduled = false
		m.mu.Unlock()
		m.Connect()
	})
}
