// Package rooms polls the read-only room listing. Purely informational: it
// is not part of the session protocol and never writes anything.
package rooms

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"example.com/crew-client/internal/transport"
)

const DefaultInterval = 5 * time.Second

type Lister struct {
	dial     transport.Dialer
	interval time.Duration
	onUpdate func([]transport.RoomInfo)
	log      *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func NewLister(dial transport.Dialer, interval time.Duration, onUpdate func([]transport.RoomInfo), log *slog.Logger) *Lister {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Lister{
		dial:     dial,
		interval: interval,
		onUpdate: onUpdate,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Start polls until Stop is called or ctx ends. The first fetch happens
// immediately so a lobby screen is not blank for a whole interval.
func (l *Lister) Start(ctx context.Context) {
	go func() {
		l.fetch(ctx)

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.fetch(ctx)
			case <-l.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop is idempotent.
func (l *Lister) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Lister) fetch(ctx context.Context) {
	rooms, err := l.dial.ListRooms(ctx)
	if err != nil {
		// a failed poll is not an event worth surfacing; next tick retries
		l.log.Debug("room listing", "err", err)
		return
	}
	l.onUpdate(rooms)
}
