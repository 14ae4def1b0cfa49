package session

import (
	"encoding/json"

	"example.com/crew-client/internal/wire"
)

// Every subscribe call returns an unsubscribe handle; callers must store it
// and invoke it on teardown, or a replaced listener keeps firing alongside
// the new one (the classic double-delivered-emoji bug).

// OnSnapshot subscribes to authoritative state pushes, in arrival order.
func (m *Manager) OnSnapshot(fn func(wire.Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.snapshotSubs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.snapshotSubs, id)
	}
}

// OnLifecycle subscribes to connection state transitions.
func (m *Manager) OnLifecycle(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.lifecycleSubs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.lifecycleSubs, id)
	}
}

// OnEphemeral subscribes to broadcast emoji reactions.
func (m *Manager) OnEphemeral(fn func(wire.EmojiEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.ephemeralSubs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.ephemeralSubs, id)
	}
}

// OnRoomClosed subscribes to server-initiated room termination, which the
// UI surfaces differently from a dropped link.
func (m *Manager) OnRoomClosed(fn func(reason string)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.closedSubs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.closedSubs, id)
	}
}

func (m *Manager) snapshotHandlers() []func(wire.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]func(wire.Snapshot), 0, len(m.snapshotSubs))
	for _, fn := range m.snapshotSubs {
		out = append(out, fn)
	}
	return out
}

func (m *Manager) ephemeralHandlers() []func(wire.EmojiEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]func(wire.EmojiEvent), 0, len(m.ephemeralSubs))
	for _, fn := range m.ephemeralSubs {
		out = append(out, fn)
	}
	return out
}

func (m *Manager) closedHandlers() []func(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]func(string), 0, len(m.closedSubs))
	for _, fn := range m.closedSubs {
		out = append(out, fn)
	}
	return out
}

func jsonUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
