package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"example.com/crew-client/internal/config"
	"example.com/crew-client/internal/diag"
	"example.com/crew-client/internal/dispatch"
	"example.com/crew-client/internal/persist"
	"example.com/crew-client/internal/rooms"
	"example.com/crew-client/internal/session"
	"example.com/crew-client/internal/state"
	"example.com/crew-client/internal/transport"
)

// App wires the client together: durable store, transport, session manager,
// synchronizer, dispatcher.
type App struct {
	cfg config.Config
	log *slog.Logger

	store persist.Store
	dial  *transport.Client

	Diag     *diag.Log
	Manager  *session.Manager
	Sync     *state.Synchronizer
	Dispatch *dispatch.Dispatcher
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	// --- durable store (fail fast) ---
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o700); err != nil {
		return nil, fmt.Errorf("storage dir: %w", err)
	}
	store, err := persist.OpenBolt(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	dial := transport.NewClient(cfg.Server.BaseURL, []byte(cfg.Server.Secret), cfg.Server.DialTimeout)
	dlog := diag.New(cfg.Diag.Capacity)

	mgr := session.NewManager(dial, store, dlog, log)

	sync := state.NewSynchronizer()
	sync.Attach(mgr)

	disp := dispatch.New(mgr, sync, store, log)

	return &App{
		cfg:      cfg,
		log:      log,
		store:    store,
		dial:     dial,
		Diag:     dlog,
		Manager:  mgr,
		Sync:     sync,
		Dispatch: disp,
	}, nil
}

// Store exposes the persistence port (display name memory, settings).
func (a *App) Store() persist.Store { return a.store }

// NewRoomLister builds a poller over the same transport.
func (a *App) NewRoomLister(onUpdate func([]transport.RoomInfo)) *rooms.Lister {
	return rooms.NewLister(a.dial, a.cfg.Rooms.PollInterval, onUpdate, a.log)
}

// Run blocks until ctx ends or the session fails terminally, then tears
// everything down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	failed := make(chan session.Event, 1)
	unsub := a.Manager.OnLifecycle(func(ev session.Event) {
		if ev.State == session.StateFailed {
			select {
			case failed <- ev:
			default:
			}
		}
	})
	defer unsub()

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case ev := <-failed:
			return fmt.Errorf("session failed: %s", ev.Reason)
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Sync.Detach()
		a.Manager.Close()
		return nil
	})

	err := g.Wait()
	_ = a.Close()
	return err
}

func (a *App) Close() error {
	return a.store.Close()
}
