package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"example.com/crew-client/internal/app"
	"example.com/crew-client/internal/config"
	"example.com/crew-client/internal/persist"
	"example.com/crew-client/internal/transport"
	"example.com/crew-client/internal/wire"
)

func main() {
	var (
		name      = flag.String("name", "", "display name (default: last used)")
		room      = flag.String("room", "", "room code to join; empty creates a room")
		reconnect = flag.Bool("reconnect", false, "resume the saved session")
		list      = flag.Bool("list", false, "poll and print joinable rooms")
	)
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup", "err", err)
		os.Exit(1)
	}

	if *list {
		lister := a.NewRoomLister(func(rooms []transport.RoomInfo) {
			for _, r := range rooms {
				logger.Info("room", "id", r.RoomID, "clients", r.Clients, "max", r.MaxClients)
			}
		})
		lister.Start(ctx)
		defer lister.Stop()
		<-ctx.Done()
		_ = a.Close()
		return
	}

	displayName := *name
	if displayName == "" {
		displayName, _, _ = a.Store().Get(persist.KeyDisplayName)
	}
	if displayName == "" && !*reconnect {
		logger.Error("a display name is required (-name)")
		os.Exit(2)
	}

	var lastStage string
	unsubState := a.Manager.OnSnapshot(func(snap wire.Snapshot) {
		if snap.Stage != lastStage {
			lastStage = snap.Stage
			logger.Info("stage", "stage", snap.Stage)
		}
	})
	defer unsubState()
	unsubEmoji := a.Manager.OnEphemeral(func(ev wire.EmojiEvent) {
		logger.Info("emoji", "from", ev.Name, "emoji", ev.Emoji)
	})
	defer unsubEmoji()
	unsubClosed := a.Manager.OnRoomClosed(func(reason string) {
		logger.Warn("room closed", "reason", reason)
	})
	defer unsubClosed()

	switch {
	case *reconnect:
		err = a.Manager.Reconnect(ctx)
	case *room != "":
		err = a.Manager.JoinSession(ctx, displayName, *room)
	default:
		err = a.Manager.CreateSession(ctx, displayName)
	}
	if err != nil {
		logger.Error("connect", "err", err)
		for _, e := range a.Diag.Entries() {
			logger.Info("diag", "at", e.At, "event", e.Event, "detail", e.Detail)
		}
		_ = a.Close()
		os.Exit(1)
	}

	logger.Info("connected", "room", a.Manager.RoomID(), "session", a.Manager.SessionID())

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run", "err", err)
		os.Exit(1)
	}
}

func newLogger(format string) *slog.Logger {
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		h = slog.NewTextHandler(os.Stdout, nil)
	}
	return slog.New(h)
}
