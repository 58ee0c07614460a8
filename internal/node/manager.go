// internal/node/manager.go
package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/meloncore/nodelink/internal/event"
	"github.com/meloncore/nodelink/internal/protocol"
)

var (
	// ErrConnect marks handshake/transport failures at connect time. The
	// attempt is dead; the caller decides whether to try again.
	ErrConnect = errors.New("connect failed")
	// ErrAlreadyConnected is returned by Connect on a manager that is not
	// disconnected. Two live sockets are never allowed.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrTransport marks unexpected mid-listen failures. Fatal to the
	// connection; surfaced on Done.
	ErrTransport = errors.New("transport failure")
	// ErrReconnectsExhausted is surfaced on Done when redialing after a
	// remote close gives up.
	ErrReconnectsExhausted = errors.New("reconnect attempts exhausted")
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultPingInterval     = 60 * time.Second
	defaultMaxReconnects    = 5
	defaultEventPrefix      = "nodelink_"
	controlWriteWait        = 5 * time.Second
)

// Config configures a Manager.
type Config struct {
	URL        string // websocket address, e.g. ws://localhost:2333
	Password   string // node shared secret
	UserID     string // caller identity
	ClientName string

	EventPrefix      string // prepended to event tags on dispatch
	HandshakeTimeout time.Duration
	PingInterval     time.Duration // keepalive heartbeat, 60s per protocol
	MaxReconnects    int           // consecutive redial attempts, <=0 means unlimited
	MaxMessageSize   int64         // read limit in bytes, <=0 means unlimited
}

// Dispatcher receives one call per successfully built event.
type Dispatcher interface {
	Dispatch(eventName string, payload map[string]any)
}

// EventBuilder translates envelopes into events. Implemented by
// event.Factory.
type EventBuilder interface {
	Build(ctx context.Context, env *protocol.Envelope) (event.Event, error)
}

// DelayPolicy produces reconnect delays. Implemented by backoff.Policy.
type DelayPolicy interface {
	Delay() time.Duration
	Reset()
}

// Stats is a snapshot of the manager's frame counters. Dropped counts
// per-message failures so silent loss is detectable.
type Stats struct {
	Received   int64
	Dispatched int64
	Dropped    int64
	Backoffs   int64
	Reconnects int64
}

// Manager owns exactly one websocket connection to the node. It performs
// the handshake, runs the keepalive and the listen loop, and is the only
// component that touches the socket.
type Manager struct {
	cfg        Config
	builder    EventBuilder
	dispatcher Dispatcher
	policy     DelayPolicy
	logger     *zap.Logger

	state atomic.Int32
	done  chan error

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc

	wg sync.WaitGroup

	received   atomic.Int64
	dispatched atomic.Int64
	dropped    atomic.Int64
	backoffs   atomic.Int64
	reconnects atomic.Int64
}

func NewManager(cfg Config, builder EventBuilder, dispatcher Dispatcher, policy DelayPolicy, logger *zap.Logger) *Manager {
	if cfg.EventPrefix == "" {
		cfg.EventPrefix = defaultEventPrefix
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = defaultMaxReconnects
	}

	return &Manager{
		cfg:        cfg,
		builder:    builder,
		dispatcher: dispatcher,
		policy:     policy,
		logger:     logger.Named("node"),
		done:       make(chan error, 1),
	}
}

// Connect opens the websocket, performs the handshake and starts the
// listener. Rejects concurrent calls while a connection is live.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}

	conn, err := m.dial(ctx)
	if err != nil {
		m.state.Store(int32(StateDisconnected))
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.conn = conn
	m.cancel = cancel
	m.mu.Unlock()

	if !m.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		// Disconnect raced the handshake; drop the fresh socket.
		cancel()
		m.closeConn()
		return fmt.Errorf("%w: disconnected during handshake", ErrConnect)
	}
	m.policy.Reset()

	m.wg.Add(2)
	go m.listen(runCtx, conn)
	go m.keepalive(runCtx)

	m.logger.Info("Connected to node", zap.String("url", m.cfg.URL))
	return nil
}

// Disconnect gracefully closes the connection and waits for the listener
// and all in-flight frame workers to stop. Idempotent.
func (m *Manager) Disconnect() {
	prev := State(m.state.Swap(int32(StateDisconnected)))

	m.mu.Lock()
	cancel := m.cancel
	conn := m.conn
	m.cancel = nil
	m.conn = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}

	m.wg.Wait()

	if prev != StateDisconnected {
		m.logger.Info("Disconnected from node")
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Done surfaces the terminal error of a connection: transport failure or
// reconnect exhaustion. Never signalled by a plain Disconnect.
func (m *Manager) Done() <-chan error {
	return m.done
}

// Stats returns a counter snapshot.
func (m *Manager) Stats() Stats {
	return Stats{
		Received:   m.received.Load(),
		Dispatched: m.dispatched.Load(),
		Dropped:    m.dropped.Load(),
		Backoffs:   m.backoffs.Load(),
		Reconnects: m.reconnects.Load(),
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", m.cfg.Password)
	header.Set("User-Id", m.cfg.UserID)
	header.Set("Client-Name", m.cfg.ClientName)

	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, m.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake rejected: %s: %w", resp.Status, err)
		}
		return nil, err
	}
	if m.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(m.cfg.MaxMessageSize)
	}
	return conn, nil
}

func (m *Manager) currentConn() *websocket.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

func (m *Manager) swapConn(conn *websocket.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
}

func (m *Manager) closeConn() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// fail records a terminal connection error.
func (m *Manager) fail(err error) {
	m.logger.Error("Connection failed", zap.Error(err))
	m.state.Store(int32(StateDisconnected))
	m.closeConn()
	select {
	case m.done <- err:
	default:
	}
}

// keepalive pings the node on the configured heartbeat interval.
func (m *Manager) keepalive(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn := m.currentConn()
			if conn == nil {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(controlWriteWait)); err != nil {
				// The read loop sees the same failure and handles it.
				m.logger.Debug("Ping failed", zap.Error(err))
			}
		}
	}
}
