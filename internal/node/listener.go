// internal/node/listener.go
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/meloncore/nodelink/internal/protocol"
)

// listen is the per-connection receive loop. Text frames are parsed and then
// processed on their own goroutine, so receiving the next frame never waits
// on event construction: receive order is guaranteed, completion order is
// not. A close frame from the node triggers a full redial after a backoff
// delay; any other read failure is fatal.
func (m *Manager) listen(ctx context.Context, conn *websocket.Conn) {
	defer m.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				// Disconnect closed the socket under us.
				return
			}

			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				next, ok := m.reconnect(ctx, closeErr)
				if !ok {
					return
				}
				conn = next
				continue
			}

			m.fail(fmt.Errorf("%w: %v", ErrTransport, err))
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		m.received.Add(1)
		frame := data
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.process(ctx, frame)
		}()
	}
}

// reconnect redials after a remote close: one backoff delay per attempt,
// full handshake, bounded by MaxReconnects. The old socket is dead by the
// time we get here; we never re-read it. Returns the new connection, or
// false once the attempts are exhausted or the context is cancelled.
func (m *Manager) reconnect(ctx context.Context, cause *websocket.CloseError) (*websocket.Conn, bool) {
	m.state.Store(int32(StateConnecting))
	m.closeConn()

	m.logger.Warn("Node closed the connection",
		zap.Int("code", cause.Code),
		zap.String("reason", cause.Text))

	for attempt := 1; m.cfg.MaxReconnects <= 0 || attempt <= m.cfg.MaxReconnects; attempt++ {
		delay := m.policy.Delay()
		m.backoffs.Add(1)
		m.logger.Info("Redialing node",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(delay):
		}

		conn, err := m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false
			}
			m.logger.Warn("Redial failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		m.swapConn(conn)
		if !m.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
			// Disconnect raced the redial; drop the fresh socket.
			m.closeConn()
			return nil, false
		}
		m.policy.Reset()
		m.reconnects.Add(1)
		m.logger.Info("Reconnected to node", zap.Int("attempt", attempt))
		return conn, true
	}

	m.fail(fmt.Errorf("%w: gave up after %d attempts", ErrReconnectsExhausted, m.cfg.MaxReconnects))
	return nil, false
}

// process handles one received frame. Per-message failures are logged and
// counted, never fatal: a bad frame costs that frame, nothing else.
func (m *Manager) process(ctx context.Context, raw []byte) {
	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		m.dropped.Add(1)
		m.logger.Warn("Dropping unparseable frame", zap.Error(err))
		return
	}

	ev, err := m.builder.Build(ctx, env)
	if err != nil {
		m.dropped.Add(1)
		m.logger.Warn("Dropping frame",
			zap.String("op", env.RawOp),
			zap.Error(err))
		return
	}

	m.dispatcher.Dispatch(m.cfg.EventPrefix+ev.Tag(), ev.Payload())
	m.dispatched.Add(1)
}
