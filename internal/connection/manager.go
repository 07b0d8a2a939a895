package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tutorlink/internal/auth"
	"tutorlink/internal/config"
	"tutorlink/pkg/types"
)

const writeBufferSize = 100

// consumer is one registered inbound frame handler, filtered by frame type.
type consumer struct {
	kind types.FrameType
	fn   func(*types.Frame)
}

// Manager owns the single websocket connection for the process: its state
// machine, reconnect policy and inbound frame fan-out. Nothing else touches
// the socket or the retry counters.
type Manager struct {
	cfg    config.SocketConfig
	auth   auth.Store
	dialer *websocket.Dialer
	logger zerolog.Logger

	mu            sync.Mutex
	state         State
	conn          *websocket.Conn
	connDone      chan struct{}
	writeCh       chan []byte
	retries       int
	closing       bool
	disposed      bool
	waiters       []chan error
	consumers     []consumer
	watchers      []func(StateChange)
	onDisconnect  []func()
	reconnectTimer *time.Timer
}

// NewManager creates a connection manager. No socket is opened until the
// first Connect or Send.
func NewManager(cfg config.SocketConfig, authStore auth.Store, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg: cfg,
		auth: authStore,
		// The connect timeout is enforced through the dial context, so the
		// dialer itself carries no handshake deadline.
		dialer: &websocket.Dialer{},
		logger: logger.With().Str("component", "connection").Logger(),
		state:  StateDisconnected,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Consume registers fn for inbound frames of the given type. Consumers with
// disjoint type filters coexist; frames are delivered in registration order.
func (m *Manager) Consume(kind types.FrameType, fn func(*types.Frame)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumers = append(m.consumers, consumer{kind: kind, fn: fn})
}

// OnStateChange registers a watcher for connection state transitions.
func (m *Manager) OnStateChange(fn func(StateChange)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}

// OnDisconnect registers a hook run after an explicit Disconnect. The
// channel layer uses this to clear room subscriptions.
func (m *Manager) OnDisconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnect = append(m.onDisconnect, fn)
}

// Connect ensures the socket is open. Idempotent when already connected;
// concurrent calls during a dial share the one in-flight attempt, so at
// most one socket is ever created.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return ErrManagerClosed
	}

	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return nil

	case StateConnecting:
		waiter := m.addWaiterLocked()
		m.mu.Unlock()
		return awaitWaiter(ctx, waiter)

	default:
		// An explicit Connect resets the retry budget, including out of
		// the Failed state.
		m.closing = false
		m.retries = 0
		m.stopReconnectTimerLocked()
		m.setStateLocked(StateConnecting, nil)
		waiter := m.addWaiterLocked()
		go m.dial()
		m.mu.Unlock()
		return awaitWaiter(ctx, waiter)
	}
}

func awaitWaiter(ctx context.Context, waiter chan error) error {
	select {
	case err := <-waiter:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) addWaiterLocked() chan error {
	waiter := make(chan error, 1)
	m.waiters = append(m.waiters, waiter)
	return waiter
}

func (m *Manager) notifyWaitersLocked(err error) {
	for _, w := range m.waiters {
		w <- err
	}
	m.waiters = nil
}

// dial performs one connection attempt. Runs outside the lock; exactly one
// dial is in flight whenever state is CONNECTING.
func (m *Manager) dial() {
	token, err := m.auth.Token()
	if err != nil {
		m.dialFailed(fmt.Errorf("no auth token: %w", err))
		return
	}

	target := m.cfg.URL + "?token=" + url.QueryEscape(token)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
	defer cancel()

	conn, _, err := m.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			err = ErrConnectTimeout
		}
		m.dialFailed(err)
		return
	}

	m.mu.Lock()
	if m.state != StateConnecting {
		// Disconnected or disposed while dialing.
		m.mu.Unlock()
		conn.Close()
		return
	}

	m.conn = conn
	m.connDone = make(chan struct{})
	m.writeCh = make(chan []byte, writeBufferSize)
	m.retries = 0
	m.setStateLocked(StateConnected, nil)
	m.notifyWaitersLocked(nil)
	writeCh, done := m.writeCh, m.connDone
	m.mu.Unlock()

	m.logger.Info().Msg("connected")

	go m.writeLoop(conn, writeCh, done)
	go m.readLoop(conn)
}

// dialFailed resolves pending Connect calls with the error and feeds the
// failure into the reconnect policy.
func (m *Manager) dialFailed(err error) {
	m.logger.Warn().Err(err).Msg("connect attempt failed")

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnecting {
		return
	}
	m.setStateLocked(StateDisconnected, err)
	m.notifyWaitersLocked(err)
	m.scheduleReconnectLocked()
}

// scheduleReconnectLocked applies the linear backoff policy: delay grows by
// one backoff base per retry, up to the retry cap. Attempts are strictly
// sequential, driven by a single timer.
func (m *Manager) scheduleReconnectLocked() {
	if m.closing || m.disposed {
		return
	}
	if m.retries >= m.cfg.MaxRetries {
		m.logger.Error().Int("retries", m.retries).Msg("giving up after exhausting reconnect retries")
		m.setStateLocked(StateFailed, ErrRetriesExhausted)
		return
	}

	delay := backoffDelay(m.cfg.BackoffBase, m.retries)
	m.retries++

	m.logger.Info().Dur("delay", delay).Int("attempt", m.retries).Msg("scheduling reconnect")
	m.reconnectTimer = time.AfterFunc(delay, m.reconnect)
}

// backoffDelay is the linear reconnect schedule: one backoff base more per
// completed retry. retry is zero-based.
func backoffDelay(base time.Duration, retry int) time.Duration {
	return base * time.Duration(retry+1)
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	if m.state != StateDisconnected || m.closing || m.disposed {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateConnecting, nil)
	m.mu.Unlock()
	m.dial()
}

func (m *Manager) stopReconnectTimerLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

// readLoop drains the socket, decoding and dispatching every frame in
// receipt order. A read error ends the loop and drives the close handling.
func (m *Manager) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(m.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(m.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(m.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(conn, err)
			return
		}

		frame, err := types.DecodeFrame(data)
		if err != nil {
			// One bad frame must not take down the socket.
			m.logger.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed frame")
			continue
		}
		m.dispatch(frame)
	}
}

// dispatch fans a frame out to every consumer whose type filter matches.
// Consumer panics are trapped here so they never unwind into the read loop.
func (m *Manager) dispatch(frame *types.Frame) {
	m.mu.Lock()
	consumers := make([]consumer, len(m.consumers))
	copy(consumers, m.consumers)
	m.mu.Unlock()

	for _, c := range consumers {
		if c.kind != frame.Type {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error().Interface("panic", r).Str("frame_type", string(frame.Type)).Msg("frame consumer panicked")
				}
			}()
			c.fn(frame)
		}()
	}
}

// handleClose processes the end of a connection's read loop, classifying
// the close as clean (code 1000 or locally initiated) or abnormal.
func (m *Manager) handleClose(conn *websocket.Conn, err error) {
	m.mu.Lock()
	if m.conn != conn {
		// A stale loop from an already-replaced connection.
		m.mu.Unlock()
		return
	}

	clean := m.closing || isCleanClose(err)
	conn.Close()
	m.conn = nil
	if m.connDone != nil {
		close(m.connDone)
		m.connDone = nil
	}
	m.writeCh = nil

	if clean {
		m.logger.Info().Msg("connection closed")
		m.setStateLocked(StateDisconnected, nil)
		m.mu.Unlock()
		return
	}

	m.logger.Warn().Err(err).Msg("connection closed abnormally")
	m.setStateLocked(StateDisconnected, err)
	m.scheduleReconnectLocked()
	m.mu.Unlock()
}

// isCleanClose reports whether a read error represents a deliberate close.
// Benign local errors (the socket torn down under the reader) are treated
// as clean rather than surfaced.
func isCleanClose(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	return false
}

// writeLoop serializes all socket writes and keeps the connection alive
// with pings. A write failure closes the socket; the read loop then drives
// the usual close handling.
func (m *Manager) writeLoop(conn *websocket.Conn, writeCh chan []byte, done chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-writeCh:
			conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				m.logger.Warn().Err(err).Msg("socket write failed")
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}

		case <-done:
			return
		}
	}
}

// Send serializes msg onto the socket. If the connection is not open it
// attempts one connect first; if that fails the caller gets ErrNotConnected
// rather than a silent drop.
func (m *Manager) Send(ctx context.Context, msg *types.OutboundMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	if m.State() != StateConnected {
		if err := m.Connect(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	m.mu.Lock()
	if m.state != StateConnected || m.writeCh == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	writeCh, done := m.writeCh, m.connDone
	m.mu.Unlock()

	select {
	case writeCh <- data:
		return nil
	case <-done:
		return ErrNotConnected
	case <-time.After(m.cfg.WriteWait):
		return ErrWriteTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect closes the socket with a normal-closure code, cancels any
// pending reconnect and runs the disconnect hooks. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closing = true
	m.stopReconnectTimerLocked()
	m.notifyWaitersLocked(ErrNotConnected)

	conn := m.conn
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(m.cfg.WriteWait))
		conn.Close()
		m.conn = nil
	}
	if m.connDone != nil {
		close(m.connDone)
		m.connDone = nil
	}
	m.writeCh = nil
	m.retries = 0
	if m.state != StateDisconnected {
		m.setStateLocked(StateDisconnected, nil)
	}

	hooks := make([]func(), len(m.onDisconnect))
	copy(hooks, m.onDisconnect)
	m.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// Dispose permanently shuts the manager down. Subsequent Connect calls fail.
func (m *Manager) Dispose() {
	m.Disconnect()
	m.mu.Lock()
	m.disposed = true
	m.mu.Unlock()
}

func (m *Manager) setStateLocked(next State, err error) {
	if m.state == next {
		return
	}
	change := StateChange{Old: m.state, New: next, Err: err}
	m.state = next

	watchers := make([]func(StateChange), len(m.watchers))
	copy(watchers, m.watchers)

	// Watchers run outside the lock so they can call back into the manager.
	go func() {
		for _, w := range watchers {
			w(change)
		}
	}()
}
