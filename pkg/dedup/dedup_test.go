package dedup

import (
	"sync"
	"testing"
)

func TestWindow_FirstSeen(t *testing.T) {
	w := NewWindow(4)
	if !w.CheckAndRecord(1) {
		t.Error("first call should report new")
	}
}

func TestWindow_SecondSeen(t *testing.T) {
	w := NewWindow(4)
	w.CheckAndRecord(1)
	if w.CheckAndRecord(1) {
		t.Error("second call with same id should report duplicate")
	}
}

func TestWindow_DifferentIDs(t *testing.T) {
	w := NewWindow(4)
	w.CheckAndRecord(1)
	if !w.CheckAndRecord(2) {
		t.Error("different id should report new")
	}
}

func TestWindow_EvictsOldest(t *testing.T) {
	w := NewWindow(3)
	w.CheckAndRecord(1)
	w.CheckAndRecord(2)
	w.CheckAndRecord(3)
	w.CheckAndRecord(4) // evicts 1

	if w.Len() != 3 {
		t.Fatalf("len = %d, want 3", w.Len())
	}
	if !w.CheckAndRecord(1) {
		t.Error("evicted id should report new again")
	}
	if w.CheckAndRecord(3) {
		t.Error("id 3 should still be tracked")
	}
}

func TestWindow_TouchRefreshesRecency(t *testing.T) {
	w := NewWindow(3)
	w.CheckAndRecord(1)
	w.CheckAndRecord(2)
	w.CheckAndRecord(3)

	// Touch 1 so 2 becomes the oldest.
	w.CheckAndRecord(1)
	w.CheckAndRecord(4) // evicts 2

	if !w.CheckAndRecord(2) {
		t.Error("id 2 should have been evicted")
	}
	// Now 3 is oldest and has just been pushed out by re-inserting 2.
	if w.CheckAndRecord(1) {
		t.Error("id 1 should survive, its recency was refreshed")
	}
}

func TestWindow_NeverExceedsCapacity(t *testing.T) {
	w := NewWindow(16)
	for i := int64(0); i < 1000; i++ {
		w.CheckAndRecord(i)
		if w.Len() > 16 {
			t.Fatalf("len = %d exceeds capacity after insert %d", w.Len(), i)
		}
	}
}

func TestWindow_ConcurrentSameID(t *testing.T) {
	w := NewWindow(64)

	const workers = 32
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- w.CheckAndRecord(7)
		}()
	}
	wg.Wait()
	close(results)

	seen := 0
	for fresh := range results {
		if fresh {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("exactly one worker should see a fresh id, got %d", seen)
	}
}
