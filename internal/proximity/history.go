package proximity

import "time"

// LockHistory keeps the timestamps of recent lock actions for loop detection.
// Entries older than the window are pruned lazily on Count.
type LockHistory struct {
	window time.Duration
	stamps []time.Time
}

// NewLockHistory creates an empty history covering the given sliding window.
func NewLockHistory(window time.Duration) *LockHistory {
	return &LockHistory{window: window}
}

// Record adds a lock at the given time.
func (h *LockHistory) Record(at time.Time) {
	h.stamps = append(h.stamps, at)
}

// Count prunes entries that left the window and returns how many remain.
func (h *LockHistory) Count(now time.Time) int {
	keep := 0

	for _, at := range h.stamps {
		if now.Sub(at) <= h.window {
			h.stamps[keep] = at
			keep++
		}
	}

	clear(h.stamps[keep:])
	h.stamps = h.stamps[:keep]

	return keep
}

// Reset drops the whole history.
func (h *LockHistory) Reset() {
	h.stamps = h.stamps[:0]
}
