// Package tickbuffer maintains a bounded per-symbol ring of recent
// (bid, ask) samples, feeding the confirmation engine's zone-probe and
// zone-dwell analysis. Writes happen on every tick before any gating;
// reads take a cheap snapshot clone so the lock is released before any
// CPU work runs against it.
package tickbuffer

import (
	"sync"

	"github.com/akephisit/reflexguard/pkg/models"
)

// Capacity is the number of samples retained per symbol before the oldest
// is evicted FIFO.
const Capacity = 30

// Buffer is a symbol -> ring of RecentTick, safe for concurrent use.
type Buffer struct {
	mu      sync.RWMutex
	entries map[string][]models.RecentTick
}

// New creates an empty tick buffer.
func New() *Buffer {
	return &Buffer{entries: make(map[string][]models.RecentTick)}
}

// Record pushes a new (bid, ask) sample for symbol, evicting the oldest
// entry once the buffer is at capacity.
func (b *Buffer) Record(symbol string, bid, ask float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ring := b.entries[symbol]
	if len(ring) >= Capacity {
		ring = ring[1:]
	}
	b.entries[symbol] = append(ring, models.NewRecentTick(bid, ask))
}

// Snapshot returns a copy of the current ring for symbol, newest entry
// last. Safe to use after the lock is released.
func (b *Buffer) Snapshot(symbol string) []models.RecentTick {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ring := b.entries[symbol]
	out := make([]models.RecentTick, len(ring))
	copy(out, ring)
	return out
}
