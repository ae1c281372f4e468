// Package app wires the relay together and drives its lifecycle: session
// up, ingress up, wait for termination, ingress down, session down.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"picommander/pkg/bus"
	"picommander/pkg/commands"
	"picommander/pkg/config"
	"picommander/pkg/dedup"
	"picommander/pkg/server"
	"picommander/pkg/session"
	"picommander/pkg/systemctl"
	"picommander/pkg/watchdog"
)

// Session is the bot session lifecycle the orchestrator drives.
type Session interface {
	Start() error
	Stop()
}

// Ingress is the HTTP listener lifecycle.
type Ingress interface {
	Start() error
	Stop()
}

// Monitor is the optional watchdog lifecycle.
type Monitor interface {
	Start(schedule string) error
	Stop()
}

// App owns the constructed components. All wiring is explicit; nothing
// global.
type App struct {
	session  Session
	ingress  Ingress
	monitor  Monitor // nil when the watchdog is disabled
	schedule string
	log      *slog.Logger
}

// New connects to Telegram and assembles all components from cfg. The SDK
// constructor performs the API handshake, so a bad token fails here.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}

	b := bus.NewUpdateBus(0, log)
	runner := systemctl.NewRunner()

	reg := commands.NewRegistry()
	commands.RegisterBuiltins(reg, runner, cfg.Service)

	sess := session.NewManager(api, b, reg, log)

	srv := server.New(server.Options{
		Addr:          cfg.ListenAddr,
		SecretToken:   cfg.SecretToken,
		ShutdownGrace: 5 * time.Second,
	}, dedup.NewWindow(dedup.DefaultCapacity), b, log)

	a := &App{
		session:  sess,
		ingress:  srv,
		schedule: cfg.Watchdog.Schedule,
		log:      log,
	}
	if cfg.Watchdog.Enabled && cfg.Watchdog.ChatID != 0 {
		a.monitor = watchdog.New(runner, sess, cfg.Service, cfg.Watchdog.ChatID, log)
	}
	return a, nil
}

// Run brings everything up in order, blocks until ctx is cancelled or a
// termination signal arrives, then shuts down in reverse order. The
// session must be running before the ingress accepts webhook traffic, and
// is stopped only after the ingress no longer accepts it. Duplicate
// signals during shutdown are absorbed by the signal context.
func (a *App) Run(ctx context.Context) error {
	if err := a.session.Start(); err != nil {
		return err
	}

	if err := a.ingress.Start(); err != nil {
		a.session.Stop()
		return fmt.Errorf("start ingress: %w", err)
	}

	if a.monitor != nil {
		if err := a.monitor.Start(a.schedule); err != nil {
			a.ingress.Stop()
			a.session.Stop()
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.log.Info("picommander is running")
	<-ctx.Done()
	a.log.Info("shutdown signal received")

	a.ingress.Stop()
	if a.monitor != nil {
		a.monitor.Stop()
	}
	a.session.Stop()

	a.log.Info("shutdown complete")
	return nil
}
