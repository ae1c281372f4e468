// Package commands holds the bot command registry and the built-in
// administrative handlers.
package commands

import (
	"sort"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Responder sends a text reply into a chat. Implemented by the session.
type Responder interface {
	Reply(chatID int64, text string)
}

// HandlerFunc handles one inbound command message.
type HandlerFunc func(msg *tgbotapi.Message, r Responder)

// Registry maps command names (without the leading slash) to handlers.
// It is built once at startup and read-only afterwards, so lookups need
// no locking.
type Registry struct {
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to an exact command name. Registering the same
// name twice keeps the last handler.
func (r *Registry) Register(name string, h HandlerFunc) {
	r.handlers[name] = h
}

// Lookup returns the handler for name, if any.
func (r *Registry) Lookup(name string) (HandlerFunc, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns all registered command names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
