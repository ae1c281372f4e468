// Package bus carries validated webhook updates from HTTP workers to the
// single-consumer session loop.
package bus

import (
	"log/slog"
	"sync"
)

const defaultBuffer = 100

// UpdateBus is the crossing point between the multi-threaded HTTP server
// and the session loop. Publishing never blocks the caller: when the buffer
// is full or the bus is closed the update is dropped and logged, matching
// the webhook contract where the HTTP response has already been sent.
type UpdateBus struct {
	updates chan InboundUpdate
	log     *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewUpdateBus creates a bus with the given buffer size (<=0 uses the
// default).
func NewUpdateBus(buffer int, log *slog.Logger) *UpdateBus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	return &UpdateBus{
		updates: make(chan InboundUpdate, buffer),
		log:     log,
	}
}

// Publish submits an update for processing and reports whether it was
// accepted. Best-effort: a full buffer or a closed bus drops the update.
func (b *UpdateBus) Publish(u InboundUpdate) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.log.Warn("update dropped, dispatch loop not running",
			"update_id", u.UpdateID, "trace_id", u.TraceID)
		return false
	}

	select {
	case b.updates <- u:
		return true
	default:
		b.log.Warn("update dropped, dispatch buffer full",
			"update_id", u.UpdateID, "trace_id", u.TraceID)
		return false
	}
}

// Updates returns the consumer side of the bus. Closed when the bus closes,
// after any buffered updates have been delivered.
func (b *UpdateBus) Updates() <-chan InboundUpdate {
	return b.updates
}

// Close stops accepting new updates. Buffered updates remain readable so
// the consumer can drain before stopping. Safe to call more than once.
func (b *UpdateBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.updates)
}
