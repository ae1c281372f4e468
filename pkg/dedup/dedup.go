// Package dedup drops re-delivered webhook updates by update_id.
package dedup

import (
	"container/list"
	"sync"
)

// DefaultCapacity matches the size Telegram realistically redelivers within.
const DefaultCapacity = 1024

// Window is a bounded recency cache over update ids. The least-recently
// touched id is evicted when the window is full; touching an existing id
// refreshes its rank. Safe for concurrent use.
type Window struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently touched
	entries  map[int64]*list.Element
}

// NewWindow creates a window holding at most capacity ids.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[int64]*list.Element, capacity),
	}
}

// CheckAndRecord returns true if id has not been seen and records it,
// evicting the least-recently-touched id at capacity. If id was already
// seen it refreshes its recency and returns false. Check and insert happen
// under one lock so two concurrent callers can never both see "new".
func (w *Window) CheckAndRecord(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if el, ok := w.entries[id]; ok {
		w.order.MoveToFront(el)
		return false
	}

	w.entries[id] = w.order.PushFront(id)
	if w.order.Len() > w.capacity {
		oldest := w.order.Back()
		w.order.Remove(oldest)
		delete(w.entries, oldest.Value.(int64))
	}
	return true
}

// Len returns the number of ids currently tracked.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.order.Len()
}
