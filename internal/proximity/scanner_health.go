package proximity

import "time"

// ScannerHealth tracks the advertisement stream and decides when the scanner must be restarted.
// Restarts back off exponentially from base to max; the first advertisement after a restart
// resets the backoff.
type ScannerHealth struct {
	timeout     time.Duration
	base        time.Duration
	max         time.Duration
	lastAdvert  time.Time
	lastRestart time.Time
	restarts    int
	backoff     time.Duration
}

// NewScannerHealth starts tracking at now, as if an advertisement had just arrived.
func NewScannerHealth(now time.Time, timing Timing) *ScannerHealth {
	return &ScannerHealth{
		timeout:    timing.HealthTimeout,
		base:       timing.BackoffBase,
		max:        timing.BackoffMax,
		lastAdvert: now,
	}
}

// RecordAdvertisement marks the stream alive. It returns true when this advertisement
// is the first one after one or more restarts.
func (h *ScannerHealth) RecordAdvertisement(now time.Time) bool {
	h.lastAdvert = now

	if h.restarts == 0 {
		return false
	}

	h.restarts = 0
	h.backoff = 0

	return true
}

// Touch refreshes liveness without counting as a recovery, e.g. after the scanner was
// intentionally paused.
func (h *ScannerHealth) Touch(now time.Time) {
	h.lastAdvert = now
}

// Silence returns how long the stream has been quiet.
func (h *ScannerHealth) Silence(now time.Time) time.Duration {
	return now.Sub(h.lastAdvert)
}

// Healthy reports whether an advertisement arrived within the health timeout.
func (h *ScannerHealth) Healthy(now time.Time) bool {
	return h.Silence(now) <= h.timeout
}

// ShouldRestart reports whether a restart is due: the stream has been silent since the
// later of the last advertisement and the last restart for longer than the timeout plus
// the current backoff. The backoff is zero until the first restart.
func (h *ScannerHealth) ShouldRestart(now time.Time) bool {
	since := h.lastAdvert
	if h.lastRestart.After(since) {
		since = h.lastRestart
	}

	return now.Sub(since) > h.timeout+h.backoff
}

// BeginRestart records a restart at now and returns the backoff before the next one.
func (h *ScannerHealth) BeginRestart(now time.Time) time.Duration {
	h.restarts++
	h.lastRestart = now
	h.backoff = h.nextBackoff()

	return h.backoff
}

// Restarts returns the number of consecutive restarts without an advertisement.
func (h *ScannerHealth) Restarts() int {
	return h.restarts
}

// Backoff returns the current backoff delay.
func (h *ScannerHealth) Backoff() time.Duration {
	return h.backoff
}

func (h *ScannerHealth) nextBackoff() time.Duration {
	d := h.base
	for i := 1; i < h.restarts; i++ {
		if d >= h.max/2 {
			return h.max
		}

		d *= 2
	}

	return min(d, h.max)
}
