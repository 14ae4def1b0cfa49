package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/crew-client/internal/diag"
	"example.com/crew-client/internal/persist"
	"example.com/crew-client/internal/transport"
	"example.com/crew-client/internal/wire"
)

// --- fakes ---------------------------------------------------------------

type fakeConn struct {
	mu   sync.Mutex
	in   chan wire.Envelope
	dead chan struct{}
	once sync.Once
	sent []wire.Envelope
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:   make(chan wire.Envelope, 16),
		dead: make(chan struct{}),
	}
}

func (c *fakeConn) Read() (wire.Envelope, error) {
	select {
	case env := <-c.in:
		return env, nil
	case <-c.dead:
		return wire.Envelope{}, errors.New("connection reset")
	}
}

func (c *fakeConn) Send(env wire.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, env)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.dead) })
	return nil
}

// push delivers a server envelope; drop simulates a network failure.
func (c *fakeConn) push(env wire.Envelope) { c.in <- env }
func (c *fakeConn) drop()                  { _ = c.Close() }

type fakeDialer struct {
	mu sync.Mutex

	createGrant transport.Grant
	createErr   error
	createCalls int

	joinGrant transport.Grant
	joinErr   error
	joinCalls int

	reconGrant transport.Grant
	reconErr   error
	reconCalls int

	attachErr error
	conns     []*fakeConn
}

func (d *fakeDialer) CreateRoom(ctx context.Context, displayName string) (transport.Grant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createCalls++
	return d.createGrant, d.createErr
}

func (d *fakeDialer) JoinRoom(ctx context.Context, roomCode, displayName string) (transport.Grant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.joinCalls++
	return d.joinGrant, d.joinErr
}

func (d *fakeDialer) Reconnect(ctx context.Context, roomID, token string) (transport.Grant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reconCalls++
	return d.reconGrant, d.reconErr
}

func (d *fakeDialer) Attach(ctx context.Context, g transport.Grant) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.attachErr != nil {
		return nil, d.attachErr
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) ListRooms(ctx context.Context) ([]transport.RoomInfo, error) {
	return nil, nil
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}

func newTestManager(d *fakeDialer) (*Manager, *persist.MemStore) {
	store := persist.NewMemStore()
	m := NewManager(d, store, diag.New(20), slog.Default())
	return m, store
}

func grant(room, sess, token string) transport.Grant {
	return transport.Grant{RoomID: room, SessionID: sess, ReconnectToken: token}
}

func storeGet(t *testing.T, s persist.Store, key string) (string, bool) {
	t.Helper()
	v, ok, err := s.Get(key)
	require.NoError(t, err)
	return v, ok
}

// --- tests ---------------------------------------------------------------

func TestCreateSession_PersistsGrant(t *testing.T) {
	d := &fakeDialer{createGrant: grant("R1", "s1", "tok1")}
	m, store := newTestManager(d)
	defer m.Close()

	require.NoError(t, m.CreateSession(context.Background(), "Alice"))

	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, "R1", m.RoomID())
	assert.Equal(t, "s1", m.SessionID())

	room, _ := storeGet(t, store, persist.KeyRoomID)
	tok, _ := storeGet(t, store, persist.KeyReconnectToken)
	name, _ := storeGet(t, store, persist.KeyDisplayName)
	assert.Equal(t, "R1", room)
	assert.Equal(t, "tok1", tok)
	assert.Equal(t, "Alice", name)
}

func TestCreateSession_FailureStaysIdle(t *testing.T) {
	d := &fakeDialer{createErr: errors.New("server down")}
	m, store := newTestManager(d)
	defer m.Close()

	err := m.CreateSession(context.Background(), "Alice")
	require.Error(t, err)
	assert.Equal(t, StateIdle, m.State())

	_, ok := storeGet(t, store, persist.KeyRoomID)
	assert.False(t, ok, "failed create must not persist anything")
}

func TestJoinSession_ReconnectsFirstWhenTokenSaved(t *testing.T) {
	d := &fakeDialer{reconGrant: grant("R1", "s2", "tok2")}
	m, store := newTestManager(d)
	defer m.Close()

	require.NoError(t, store.Put(persist.KeyRoomID, "R1"))
	require.NoError(t, store.Put(persist.KeyReconnectToken, "tok1"))
	require.NoError(t, store.Put(persist.KeyDisplayName, "Alice"))

	require.NoError(t, m.JoinSession(context.Background(), "Alice", "R1"))

	assert.Equal(t, 1, d.reconCalls, "reconnect must be attempted first")
	assert.Equal(t, 0, d.joinCalls, "no fresh join when reconnect succeeds")

	tok, _ := storeGet(t, store, persist.KeyReconnectToken)
	assert.Equal(t, "tok2", tok, "token must be rotated")
}

func TestJoinSession_StaleTokenClearedThenOneFreshJoin(t *testing.T) {
	d := &fakeDialer{
		reconErr:  errors.New("token expired"),
		joinGrant: grant("R1", "s3", "tok3"),
	}
	m, store := newTestManager(d)
	defer m.Close()

	require.NoError(t, store.Put(persist.KeyRoomID, "R1"))
	require.NoError(t, store.Put(persist.KeyReconnectToken, "stale"))

	require.NoError(t, m.JoinSession(context.Background(), "Alice", "R1"))

	assert.Equal(t, 1, d.reconCalls)
	assert.Equal(t, 1, d.joinCalls, "exactly one fresh join after stale token")
	assert.Equal(t, StateConnected, m.State())

	tok, _ := storeGet(t, store, persist.KeyReconnectToken)
	assert.Equal(t, "tok3", tok)
}

func TestJoinSession_NoSavedTokenSkipsReconnect(t *testing.T) {
	d := &fakeDialer{joinGrant: grant("R2", "s1", "tok1")}
	m, _ := newTestManager(d)
	defer m.Close()

	require.NoError(t, m.JoinSession(context.Background(), "Alice", "R2"))
	assert.Equal(t, 0, d.reconCalls)
	assert.Equal(t, 1, d.joinCalls)
}

func TestJoinSession_TokenForOtherRoomIgnored(t *testing.T) {
	d := &fakeDialer{joinGrant: grant("R2", "s1", "tok1")}
	m, store := newTestManager(d)
	defer m.Close()

	require.NoError(t, store.Put(persist.KeyRoomID, "R1"))
	require.NoError(t, store.Put(persist.KeyReconnectToken, "tok0"))

	require.NoError(t, m.JoinSession(context.Background(), "Alice", "R2"))
	assert.Equal(t, 0, d.reconCalls, "token belongs to a different room")
	assert.Equal(t, 1, d.joinCalls)
}

func TestReconnect_FailureClearsSavedSession(t *testing.T) {
	d := &fakeDialer{reconErr: errors.New("unknown session")}
	m, store := newTestManager(d)
	defer m.Close()

	require.NoError(t, store.Put(persist.KeyRoomID, "R1"))
	require.NoError(t, store.Put(persist.KeyReconnectToken, "tok1"))
	require.NoError(t, store.Put(persist.KeyDisplayName, "Alice"))

	err := m.Reconnect(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateFailed, m.State())
	assert.Equal(t, 1, d.reconCalls, "a failed reconnect is never retried")

	_, ok := storeGet(t, store, persist.KeyRoomID)
	assert.False(t, ok)
	_, ok = storeGet(t, store, persist.KeyReconnectToken)
	assert.False(t, ok)

	// display name is not session data; it survives
	name, ok := storeGet(t, store, persist.KeyDisplayName)
	assert.True(t, ok)
	assert.Equal(t, "Alice", name)
}

func TestReconnect_WithoutSavedSession(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(d)
	defer m.Close()

	err := m.Reconnect(context.Background())
	assert.ErrorIs(t, err, ErrNoSavedToken)
	assert.Equal(t, 0, d.reconCalls)
}

func TestUnexpectedDrop_KeepsSavedSession(t *testing.T) {
	d := &fakeDialer{createGrant: grant("R1", "s1", "tok1")}
	m, store := newTestManager(d)
	defer m.Close()

	events := make(chan Event, 8)
	unsub := m.OnLifecycle(func(ev Event) { events <- ev })
	defer unsub()

	require.NoError(t, m.CreateSession(context.Background(), "Alice"))

	d.lastConn().drop()

	require.Eventually(t, func() bool { return m.State() == StateDisconnected },
		time.Second, 5*time.Millisecond)

	// session data stays so a manual reconnect can reuse it
	tok, ok := storeGet(t, store, persist.KeyReconnectToken)
	assert.True(t, ok)
	assert.Equal(t, "tok1", tok)

	var sawDisconnect bool
	for len(events) > 0 {
		if ev := <-events; ev.State == StateDisconnected {
			sawDisconnect = true
			assert.NotEmpty(t, ev.Reason)
		}
	}
	assert.True(t, sawDisconnect, "lifecycle subscribers must see the drop")
}

func TestSnapshots_DeliveredInOrder(t *testing.T) {
	d := &fakeDialer{createGrant: grant("R1", "s1", "tok1")}
	m, _ := newTestManager(d)
	defer m.Close()

	got := make(chan string, 8)
	unsub := m.OnSnapshot(func(snap wire.Snapshot) { got <- snap.Stage })
	defer unsub()

	require.NoError(t, m.CreateSession(context.Background(), "Alice"))

	conn := d.lastConn()
	conn.push(wire.Envelope{Type: wire.MsgState, Payload: wire.MustJSON(wire.Snapshot{Stage: "game_setup"})})
	conn.push(wire.Envelope{Type: wire.MsgState, Payload: wire.MustJSON(wire.Snapshot{Stage: "trick_start"})})

	assert.Equal(t, "game_setup", recvString(t, got))
	assert.Equal(t, "trick_start", recvString(t, got))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	d := &fakeDialer{createGrant: grant("R1", "s1", "tok1")}
	m, _ := newTestManager(d)
	defer m.Close()

	got := make(chan wire.EmojiEvent, 8)
	unsub := m.OnEphemeral(func(ev wire.EmojiEvent) { got <- ev })

	require.NoError(t, m.CreateSession(context.Background(), "Alice"))
	conn := d.lastConn()

	conn.push(wire.Envelope{Type: wire.MsgEmoji, Payload: wire.MustJSON(wire.EmojiEvent{Emoji: "🎉"})})
	require.Equal(t, "🎉", recvEmoji(t, got).Emoji)

	unsub()
	conn.push(wire.Envelope{Type: wire.MsgEmoji, Payload: wire.MustJSON(wire.EmojiEvent{Emoji: "👻"})})
	// drain: the second emoji must never arrive
	conn.push(wire.Envelope{Type: wire.MsgState, Payload: wire.MustJSON(wire.Snapshot{})})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, got, "unsubscribed handler must not fire")
}

func TestRoomClosed_ClearsSessionAndFails(t *testing.T) {
	d := &fakeDialer{createGrant: grant("R1", "s1", "tok1")}
	m, store := newTestManager(d)
	defer m.Close()

	reasons := make(chan string, 1)
	unsub := m.OnRoomClosed(func(reason string) { reasons <- reason })
	defer unsub()

	require.NoError(t, m.CreateSession(context.Background(), "Alice"))
	d.lastConn().push(wire.Envelope{
		Type:    wire.MsgRoomClosed,
		Payload: wire.MustJSON(wire.RoomClosedPayload{Reason: "host left"}),
	})

	assert.Equal(t, "host left", recvString(t, reasons))
	require.Eventually(t, func() bool { return m.State() == StateFailed },
		time.Second, 5*time.Millisecond)

	// the room is gone; the token is worthless
	_, ok := storeGet(t, store, persist.KeyReconnectToken)
	assert.False(t, ok)
}

func TestSend_RequiresLiveSession(t *testing.T) {
	d := &fakeDialer{createGrant: grant("R1", "s1", "tok1")}
	m, _ := newTestManager(d)
	defer m.Close()

	assert.ErrorIs(t, m.Send(wire.MsgFinishTrick, nil), ErrNotConnected)

	require.NoError(t, m.CreateSession(context.Background(), "Alice"))
	require.NoError(t, m.Send(wire.MsgSendEmoji, wire.SendEmojiPayload{Label: "party"}))

	conn := d.lastConn()
	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.sent, 1)
	assert.Equal(t, wire.MsgSendEmoji, conn.sent[0].Type)
}

func TestNewSessionReplacesOldConnection(t *testing.T) {
	d := &fakeDialer{createGrant: grant("R1", "s1", "tok1"), joinGrant: grant("R2", "s2", "tok2")}
	m, _ := newTestManager(d)
	defer m.Close()

	require.NoError(t, m.CreateSession(context.Background(), "Alice"))
	first := d.lastConn()

	require.NoError(t, m.JoinSession(context.Background(), "Alice", "R2"))

	select {
	case <-first.dead:
	case <-time.After(time.Second):
		t.Fatal("old connection must be closed when a new session starts")
	}
	assert.Equal(t, "R2", m.RoomID())
}

func recvString(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func recvEmoji(t *testing.T, ch chan wire.EmojiEvent) wire.EmojiEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for emoji")
		return wire.EmojiEvent{}
	}
}
