// Package watchdog periodically probes the managed service and notifies
// the admin chat when its health flips.
package watchdog

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"picommander/pkg/commands"
)

// Notifier delivers a message to the admin chat. The session's Reply
// satisfies it; the underlying SDK client is safe to call from the cron
// goroutine.
type Notifier interface {
	Reply(chatID int64, text string)
}

// Watchdog runs "systemctl is-active <service>" on a cron schedule and
// reports edges only, staying quiet while the state is steady.
type Watchdog struct {
	runner  commands.ServiceRunner
	notify  Notifier
	service string
	chatID  int64
	log     *slog.Logger

	cron *cron.Cron

	mu      sync.Mutex
	healthy *bool // nil until the first probe
}

// New builds a watchdog for the given service unit and admin chat.
func New(runner commands.ServiceRunner, notify Notifier, service string, chatID int64, log *slog.Logger) *Watchdog {
	if log == nil {
		log = slog.Default()
	}
	return &Watchdog{
		runner:  runner,
		notify:  notify,
		service: service,
		chatID:  chatID,
		log:     log,
	}
}

// Start schedules the probe. The schedule uses standard five-field cron
// syntax.
func (w *Watchdog) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, w.probe); err != nil {
		return fmt.Errorf("watchdog schedule %q: %w", schedule, err)
	}
	c.Start()
	w.cron = c
	w.log.Info("watchdog started", "service", w.service, "schedule", schedule)
	return nil
}

// Stop halts scheduling and waits for a running probe to finish. Safe to
// call without a prior successful Start.
func (w *Watchdog) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.log.Info("watchdog stopped")
}

// probe runs on the cron goroutine, never on the session loop, so routine
// health checks do not stall command handling.
func (w *Watchdog) probe() {
	ok, out := w.runner.Run("is-active", w.service)

	w.mu.Lock()
	prev := w.healthy
	w.healthy = &ok
	w.mu.Unlock()

	// The baseline before the first probe is assumed healthy, so a service
	// that is already down gets reported once at startup.
	if prev != nil && *prev == ok {
		return
	}
	if ok && prev == nil {
		return
	}

	if ok {
		w.notify.Reply(w.chatID, fmt.Sprintf("%s %s is active again", commands.MarkerOK, w.service))
	} else {
		w.log.Warn("service unhealthy", "service", w.service, "output", out)
		w.notify.Reply(w.chatID, fmt.Sprintf("%s %s is down: %s", commands.MarkerFail, w.service, out))
	}
}
