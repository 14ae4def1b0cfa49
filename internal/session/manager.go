// Package session owns the network session lifecycle: create, join by code,
// reconnect with a durable token, and the state machine between them. It is
// the only writer of session identity and the only reader of the websocket.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"example.com/crew-client/internal/diag"
	"example.com/crew-client/internal/persist"
	"example.com/crew-client/internal/transport"
	"example.com/crew-client/internal/wire"
)

type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Event is a lifecycle transition surfaced to subscribers.
type Event struct {
	State  State
	Reason string
}

var (
	ErrNotConnected = errors.New("no live session")
	ErrNoSavedToken = errors.New("no saved session to reconnect")
)

// Manager drives the connection lifecycle. All inbound events are delivered
// from a single goroutine, in arrival order, one at a time.
type Manager struct {
	dial  transport.Dialer
	store persist.Store
	dlog  *diag.Log
	log   *slog.Logger

	mu          sync.Mutex
	state       State
	grant       transport.Grant
	conn        transport.Conn
	displayName string
	closed      bool

	nextSub       int
	snapshotSubs  map[int]func(wire.Snapshot)
	lifecycleSubs map[int]func(Event)
	ephemeralSubs map[int]func(wire.EmojiEvent)
	closedSubs    map[int]func(reason string)
}

func NewManager(dial transport.Dialer, store persist.Store, dlog *diag.Log, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		dial:          dial,
		store:         store,
		dlog:          dlog,
		log:           log,
		state:         StateIdle,
		snapshotSubs:  make(map[int]func(wire.Snapshot)),
		lifecycleSubs: make(map[int]func(Event)),
		ephemeralSubs: make(map[int]func(wire.EmojiEvent)),
		closedSubs:    make(map[int]func(string)),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grant.SessionID
}

func (m *Manager) RoomID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grant.RoomID
}

// CreateSession asks the server for a fresh room. On failure the manager
// returns to idle; nothing is persisted.
func (m *Manager) CreateSession(ctx context.Context, displayName string) error {
	m.setState(StateConnecting, "creating room")

	g, err := m.dial.CreateRoom(ctx, displayName)
	if err != nil {
		m.dlog.Append("create_failed", err.Error())
		m.setState(StateIdle, "create failed")
		return fmt.Errorf("create session: %w", err)
	}

	return m.attach(ctx, g, displayName)
}

// JoinSession joins a room by code. If a reconnect token for the same room
// is persisted, one reconnect attempt is made first; a stale token is
// cleared and followed by exactly one fresh join request.
func (m *Manager) JoinSession(ctx context.Context, displayName, roomCode string) error {
	savedRoom, _, _ := m.store.Get(persist.KeyRoomID)
	savedToken, _, _ := m.store.Get(persist.KeyReconnectToken)

	if savedRoom == roomCode && savedToken != "" {
		if err := m.reconnectOnce(ctx, savedRoom, savedToken); err == nil {
			return nil
		}
		// reconnectOnce already cleared the stale session data
		m.dlog.Append("join_fallback", "stale token cleared, joining fresh")
	}

	m.setState(StateConnecting, "joining "+roomCode)

	g, err := m.dial.JoinRoom(ctx, roomCode, displayName)
	if err != nil {
		m.dlog.Append("join_failed", err.Error())
		m.setState(StateIdle, "join failed")
		return fmt.Errorf("join session: %w", err)
	}

	return m.attach(ctx, g, displayName)
}

// Reconnect resumes the persisted session after a drop. It is a single
// attempt: on failure the saved session data is cleared and the caller must
// fall back to JoinSession. Never retried automatically.
func (m *Manager) Reconnect(ctx context.Context) error {
	roomID, _, _ := m.store.Get(persist.KeyRoomID)
	token, _, _ := m.store.Get(persist.KeyReconnectToken)
	if roomID == "" || token == "" {
		return ErrNoSavedToken
	}
	return m.reconnectOnce(ctx, roomID, token)
}

func (m *Manager) reconnectOnce(ctx context.Context, roomID, token string) error {
	m.setState(StateReconnecting, "resuming "+roomID)

	g, err := m.dial.Reconnect(ctx, roomID, token)
	if err != nil {
		m.clearSavedSession()
		m.dlog.Append("reconnect_failed", err.Error())
		m.setState(StateFailed, "reconnect failed")
		return fmt.Errorf("reconnect: %w", err)
	}

	name, _, _ := m.store.Get(persist.KeyDisplayName)
	if err := m.attach(ctx, g, name); err != nil {
		m.clearSavedSession()
		m.setState(StateFailed, "reconnect failed")
		return err
	}
	return nil
}

// attach upgrades a grant to a live websocket and adopts it as the one
// session. Any previous connection is torn down first; sessions replace,
// they never stack.
func (m *Manager) attach(ctx context.Context, g transport.Grant, displayName string) error {
	conn, err := m.dial.Attach(ctx, g)
	if err != nil {
		m.dlog.Append("attach_failed", err.Error())
		m.setState(StateIdle, "attach failed")
		return fmt.Errorf("attach: %w", err)
	}

	m.mu.Lock()
	old := m.conn
	m.conn = conn
	m.grant = g
	m.displayName = displayName
	m.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	m.persistGrant(g, displayName)
	m.setState(StateConnected, "room "+g.RoomID)

	go m.readLoop(conn)
	return nil
}

// Send marshals an intent into an envelope on the live connection.
func (m *Manager) Send(msgType string, payload any) error {
	m.mu.Lock()
	conn := m.conn
	st := m.state
	m.mu.Unlock()

	if st != StateConnected || conn == nil {
		return ErrNotConnected
	}

	env := wire.Envelope{Type: msgType}
	if payload != nil {
		env.Payload = wire.MustJSON(payload)
	}
	if err := conn.Send(env); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

// Close tears down the session and every subscription, exactly once. The
// persisted session data is kept; clearing it is an explicit user action
// (ClearSavedSession).
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conn := m.conn
	m.conn = nil
	m.snapshotSubs = map[int]func(wire.Snapshot){}
	m.lifecycleSubs = map[int]func(Event){}
	m.ephemeralSubs = map[int]func(wire.EmojiEvent){}
	m.closedSubs = map[int]func(string){}
	m.state = StateIdle
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.dlog.Append("closed", "session manager shut down")
}

// ClearSavedSession forgets the persisted room and token (explicit user
// action, e.g. "leave room"). The display name survives.
func (m *Manager) ClearSavedSession() {
	m.clearSavedSession()
	m.dlog.Append("session_cleared", "saved session data removed")
}

func (m *Manager) readLoop(conn transport.Conn) {
	for {
		env, err := conn.Read()
		if err != nil {
			m.handleDrop(conn, err)
			return
		}
		m.handleEnvelope(env)
	}
}

func (m *Manager) handleEnvelope(env wire.Envelope) {
	switch env.Type {
	case wire.MsgState:
		var snap wire.Snapshot
		if err := jsonUnmarshal(env.Payload, &snap); err != nil {
			m.log.Warn("bad state payload", "err", err)
			return
		}
		for _, fn := range m.snapshotHandlers() {
			fn(snap)
		}

	case wire.MsgEmoji:
		var ev wire.EmojiEvent
		if err := jsonUnmarshal(env.Payload, &ev); err != nil {
			m.log.Warn("bad emoji payload", "err", err)
			return
		}
		for _, fn := range m.ephemeralHandlers() {
			fn(ev)
		}

	case wire.MsgRoomClosed:
		var p wire.RoomClosedPayload
		_ = jsonUnmarshal(env.Payload, &p)
		m.handleRoomClosed(p.Reason)

	case wire.MsgError:
		var p wire.ErrorPayload
		_ = jsonUnmarshal(env.Payload, &p)
		m.dlog.Append("server_error", p.Code+": "+p.Message)
		m.log.Warn("server error", "code", p.Code, "message", p.Message)

	default:
		m.log.Debug("unknown envelope", "type", env.Type)
	}
}

// handleDrop reacts to an unexpected read failure. The saved session data
// stays persisted so a manual reconnect can reuse it.
func (m *Manager) handleDrop(conn transport.Conn, err error) {
	m.mu.Lock()
	if m.closed || m.conn != conn {
		// deliberate close, or this conn was already replaced
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.mu.Unlock()

	m.dlog.Append("disconnected", err.Error())
	m.setState(StateDisconnected, err.Error())
}

// handleRoomClosed is the server telling us the room itself is gone, which
// is distinct from losing our link to it: the token is now worthless.
func (m *Manager) handleRoomClosed(reason string) {
	if reason == "" {
		reason = "room closed by server"
	}

	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}

	m.clearSavedSession()
	m.dlog.Append("room_closed", reason)
	m.setState(StateFailed, reason)

	for _, fn := range m.closedHandlers() {
		fn(reason)
	}
}

func (m *Manager) setState(st State, reason string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.state = st
	subs := make([]func(Event), 0, len(m.lifecycleSubs))
	for _, fn := range m.lifecycleSubs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.dlog.Append(string(st), reason)
	m.log.Info("session state", "state", st, "reason", reason)

	ev := Event{State: st, Reason: reason}
	for _, fn := range subs {
		fn(ev)
	}
}

func (m *Manager) persistGrant(g transport.Grant, displayName string) {
	if err := m.store.Put(persist.KeyRoomID, g.RoomID); err != nil {
		m.log.Warn("persist room id", "err", err)
	}
	if err := m.store.Put(persist.KeyReconnectToken, g.ReconnectToken); err != nil {
		m.log.Warn("persist reconnect token", "err", err)
	}
	if displayName != "" {
		if err := m.store.Put(persist.KeyDisplayName, displayName); err != nil {
			m.log.Warn("persist display name", "err", err)
		}
	}
}

func (m *Manager) clearSavedSession() {
	_ = m.store.Delete(persist.KeyRoomID)
	_ = m.store.Delete(persist.KeyReconnectToken)
}
