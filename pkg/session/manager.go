// Package session owns the long-lived Telegram bot connection and the
// single-consumer loop that executes command handlers.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"picommander/pkg/bus"
	"picommander/pkg/commands"
)

// State is the session lifecycle. Transitions are linear, no cycles.
type State int32

const (
	StateCreated State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("session: already started")

// API is the slice of the bot SDK the session consumes: identity handshake
// and text replies. *tgbotapi.BotAPI satisfies it.
type API interface {
	GetMe() (tgbotapi.User, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Manager runs the dispatch loop. Handlers execute strictly one at a time
// on the loop goroutine; a blocking systemctl call therefore stalls later
// updates until it returns. Accepted: administrative commands are rare and
// sub-second, and serializing them avoids racing start against stop.
type Manager struct {
	api API
	bus *bus.UpdateBus
	reg *commands.Registry
	log *slog.Logger

	mu    sync.Mutex
	state State
	done  chan struct{}
}

// NewManager wires a session over the given SDK connection, update bus and
// command registry. The registry must be fully populated before Start.
func NewManager(api API, b *bus.UpdateBus, reg *commands.Registry, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		api:   api,
		bus:   b,
		reg:   reg,
		log:   log,
		state: StateCreated,
		done:  make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start performs the identity handshake and brings the dispatch loop to
// Running. A handshake failure leaves the session unusable and must abort
// process bring-up.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.state != StateCreated {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.state = StateStarting
	m.mu.Unlock()

	me, err := m.api.GetMe()
	if err != nil {
		m.mu.Lock()
		m.state = StateStopped
		m.mu.Unlock()
		return fmt.Errorf("session handshake: %w", err)
	}
	m.log.Info("telegram bot connected", "username", me.UserName)

	m.mu.Lock()
	m.state = StateRunning
	m.mu.Unlock()

	go m.loop()
	return nil
}

// Stop closes the bus to new submissions, lets the in-flight handler and
// any already-accepted updates finish, then transitions to Stopped. Safe to
// call more than once; a no-op unless the session is Running.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return
	}
	m.state = StateStopping
	m.mu.Unlock()

	m.log.Info("session stopping, draining dispatch loop")
	m.bus.Close()
	<-m.done

	m.mu.Lock()
	m.state = StateStopped
	m.mu.Unlock()
	m.log.Info("session stopped")
}

func (m *Manager) loop() {
	defer close(m.done)
	for u := range m.bus.Updates() {
		m.dispatch(u)
	}
}

func (m *Manager) dispatch(u bus.InboundUpdate) {
	msg := u.Update.Message
	if msg == nil {
		m.log.Debug("update without message ignored",
			"update_id", u.UpdateID, "trace_id", u.TraceID)
		return
	}
	if !msg.IsCommand() {
		m.log.Debug("non-command message ignored",
			"update_id", u.UpdateID, "trace_id", u.TraceID)
		return
	}

	name := msg.Command()
	handler, ok := m.reg.Lookup(name)
	if !ok {
		// Unknown commands stay silent toward the sender.
		m.log.Debug("unknown command ignored",
			"command", name, "trace_id", u.TraceID)
		return
	}

	m.log.Debug("dispatching command",
		"command", name, "chat_id", msg.Chat.ID, "trace_id", u.TraceID)
	handler(msg, m)
}

// Reply sends a plain text message into the chat. Send failures are logged,
// not surfaced: by now the webhook caller has long been answered.
func (m *Manager) Reply(chatID int64, text string) {
	if _, err := m.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		m.log.Error("send reply failed", "chat_id", chatID, "error", err)
	}
}
