package bus

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// InboundUpdate is one parsed webhook delivery on its way to the session
// loop. Immutable once published.
type InboundUpdate struct {
	// TraceID correlates log lines for a single delivery across the HTTP
	// worker and the session loop.
	TraceID string

	// UpdateID is the numeric Telegram update id, or 0 when the payload
	// carried none (such updates bypass deduplication).
	UpdateID int64

	Update     tgbotapi.Update
	ReceivedAt time.Time
}
