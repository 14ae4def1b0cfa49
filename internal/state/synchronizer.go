package state

import (
	"sync"

	"example.com/crew-client/internal/wire"
)

// Source is the slice of the session manager the synchronizer needs.
type Source interface {
	OnSnapshot(fn func(wire.Snapshot)) (unsubscribe func())
	SessionID() string
}

// Synchronizer mirrors authoritative snapshots into a View. Snapshots are
// applied one at a time in arrival order (the session manager delivers them
// from a single goroutine); readers always see a fully-applied view.
type Synchronizer struct {
	mu    sync.RWMutex
	view  View
	unsub func()
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Attach subscribes to src, replacing any previous subscription. A new
// session replaces rather than layers on top of an old one.
func (s *Synchronizer) Attach(src Source) {
	s.Detach()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsub = src.OnSnapshot(func(snap wire.Snapshot) {
		s.apply(snap, src.SessionID())
	})
}

// Detach unsubscribes. Safe to call more than once.
func (s *Synchronizer) Detach() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Current returns the latest view. The returned value must be treated as
// immutable.
func (s *Synchronizer) Current() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Synchronizer) apply(snap wire.Snapshot, localSessionID string) {
	v := Rebuild(snap, localSessionID)

	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}
