package bus

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishConsume(t *testing.T) {
	b := NewUpdateBus(4, discardLogger())

	if !b.Publish(InboundUpdate{UpdateID: 1}) {
		t.Fatal("publish on empty bus should be accepted")
	}

	got := <-b.Updates()
	if got.UpdateID != 1 {
		t.Errorf("UpdateID = %d, want 1", got.UpdateID)
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := NewUpdateBus(2, discardLogger())

	if !b.Publish(InboundUpdate{UpdateID: 1}) || !b.Publish(InboundUpdate{UpdateID: 2}) {
		t.Fatal("publishes within buffer should be accepted")
	}
	if b.Publish(InboundUpdate{UpdateID: 3}) {
		t.Error("publish beyond buffer should be dropped, not block")
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := NewUpdateBus(2, discardLogger())
	b.Close()

	if b.Publish(InboundUpdate{UpdateID: 1}) {
		t.Error("publish after close should be dropped")
	}
}

func TestCloseTwice(t *testing.T) {
	b := NewUpdateBus(2, discardLogger())
	b.Close()
	b.Close() // must not panic
}

func TestCloseDrainsBuffered(t *testing.T) {
	b := NewUpdateBus(4, discardLogger())
	b.Publish(InboundUpdate{UpdateID: 1})
	b.Publish(InboundUpdate{UpdateID: 2})
	b.Close()

	var ids []int64
	for u := range b.Updates() {
		ids = append(ids, u.UpdateID)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("drained %v, want [1 2] in order", ids)
	}
}
