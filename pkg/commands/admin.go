package commands

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reply markers for quick visual scanning in the chat.
const (
	MarkerOK   = "✅"
	MarkerStop = "🛑"
	MarkerFail = "❌"
)

// ServiceRunner is the slice of the systemctl runner the handlers need.
type ServiceRunner interface {
	Run(action, service string) (ok bool, msg string)
}

// RegisterBuiltins installs the default command set for managing the given
// service unit: a greeting, a liveness ping, and start/stop/status
// administration. Command names follow the original bot's convention of
// appending the service name, e.g. /statusfail2ban.
func RegisterBuiltins(reg *Registry, runner ServiceRunner, service string) {
	reg.Register("ping", Ping)
	reg.Register("start", Greeting(reg, service))
	reg.Register("help", Greeting(reg, service))
	reg.Register("start"+service, StartService(runner, service))
	reg.Register("stop"+service, StopService(runner, service))
	reg.Register("status"+service, StatusService(runner, service))
}

// Ping replies with pong, handy for checking the relay end to end.
func Ping(msg *tgbotapi.Message, r Responder) {
	r.Reply(msg.Chat.ID, "pong")
}

// Greeting lists the available commands. Bound to /start and /help.
func Greeting(reg *Registry, service string) HandlerFunc {
	return func(msg *tgbotapi.Message, r Responder) {
		var b strings.Builder
		fmt.Fprintf(&b, "👋 PiCommander manages the %s service.\n\nCommands:\n", service)
		for _, name := range reg.Names() {
			fmt.Fprintf(&b, "/%s\n", name)
		}
		r.Reply(msg.Chat.ID, b.String())
	}
}

// StartService starts the unit and reports the outcome.
func StartService(runner ServiceRunner, service string) HandlerFunc {
	return func(msg *tgbotapi.Message, r Responder) {
		if ok, out := runner.Run("start", service); ok {
			r.Reply(msg.Chat.ID, MarkerOK+" Started.")
		} else {
			r.Reply(msg.Chat.ID, MarkerFail+" "+out)
		}
	}
}

// StopService stops the unit and reports the outcome.
func StopService(runner ServiceRunner, service string) HandlerFunc {
	return func(msg *tgbotapi.Message, r Responder) {
		if ok, out := runner.Run("stop", service); ok {
			r.Reply(msg.Chat.ID, MarkerStop+" Stopped.")
		} else {
			r.Reply(msg.Chat.ID, MarkerFail+" "+out)
		}
	}
}

// StatusService relays the unit's status output, marked for scanning.
func StatusService(runner ServiceRunner, service string) HandlerFunc {
	return func(msg *tgbotapi.Message, r Responder) {
		if ok, out := runner.Run("status", service); ok {
			r.Reply(msg.Chat.ID, MarkerOK+" "+out)
		} else {
			r.Reply(msg.Chat.ID, MarkerFail+" "+out)
		}
	}
}
