package proximity

import "time"

// EventKind names a structured event emitted by the engine.
type EventKind string

const (
	// EventSampleProcessed is emitted for every smoothed sample of the target.
	EventSampleProcessed EventKind = "sample_processed"
	// EventAlertRaised is emitted when the device leaves the range and the lock action fires.
	EventAlertRaised EventKind = "alert_raised"
	// EventAlertCleared is emitted when the device is back in range.
	EventAlertCleared EventKind = "alert_cleared"
	// EventGraceStarted is emitted when an unlock opens the grace window.
	EventGraceStarted EventKind = "grace_started"
	// EventGraceEnded is emitted when the grace window closes.
	EventGraceEnded EventKind = "grace_ended"
	// EventLoopPaused is emitted when a lock loop pauses alerting.
	EventLoopPaused EventKind = "loop_paused"
	// EventLoopResumed is emitted when the loop penalty is over.
	EventLoopResumed EventKind = "loop_resumed"
	// EventScannerRestarted is emitted for every restart requested by the watchdog.
	EventScannerRestarted EventKind = "scanner_restarted"
	// EventScannerRecovered is emitted for the first advertisement after a restart.
	EventScannerRecovered EventKind = "scanner_recovered"
	// EventHostLocked is emitted when the watchdog sees a lock it did not cause.
	EventHostLocked EventKind = "host_locked"
	// EventHostUnlocked is emitted when the lock-handling sequence observed an unlock.
	EventHostUnlocked EventKind = "host_unlocked"
	// EventHandlerReset is emitted when a stuck lock-handling sequence is abandoned.
	EventHandlerReset EventKind = "handler_reset"
	// EventCallbackError is emitted when processing a single advertisement panicked.
	EventCallbackError EventKind = "callback_error"
)

// Event is a structured record of something the engine did.
// Optional fields are left zero when they do not apply to the kind.
type Event struct {
	// Kind is the event type.
	Kind EventKind `cbor:"1,keyasint" json:"kind"`
	// Time is when the engine observed the event.
	Time time.Time `cbor:"2,keyasint" json:"time"`
	// State is the alert state after the event was handled.
	State AlertState `cbor:"3,keyasint" json:"state"`
	// Address is the target device address.
	Address string `cbor:"4,keyasint,omitempty" json:"address,omitempty"`
	// RSSI is the raw reading that produced a sample.
	RSSI int16 `cbor:"5,keyasint,omitempty" json:"rssi,omitempty"`
	// Smoothed is the window mean used for the estimate.
	Smoothed float64 `cbor:"6,keyasint,omitempty" json:"smoothed,omitempty"`
	// Distance is the estimate in meters, nil when unknown.
	Distance *float64 `cbor:"7,keyasint,omitempty" json:"distance,omitempty"`
	// Attempt counts restarts or locks, depending on the kind.
	Attempt int `cbor:"8,keyasint,omitempty" json:"attempt,omitempty"`
	// Backoff is the delay enforced before the next scanner restart.
	Backoff time.Duration `cbor:"9,keyasint,omitempty" json:"backoff,omitempty"`
	// Until is the end of a grace or pause window.
	Until time.Time `cbor:"10,keyasint" json:"until,omitzero"`
	// Message carries the collaborator's own description, e.g. what the locker ran.
	Message string `cbor:"11,keyasint,omitempty" json:"message,omitempty"`
	// Error is the failure reported by a collaborator, if any.
	Error string `cbor:"12,keyasint,omitempty" json:"error,omitempty"`
	// Session identifies the monitoring session; stamped by the sink, not the engine.
	Session string `cbor:"13,keyasint,omitempty" json:"session,omitempty"`
}

// DistanceValue returns the estimate carried by the event.
func (e Event) DistanceValue() Distance {
	if e.Distance == nil {
		return UnknownDistance()
	}

	return Meters(*e.Distance)
}

func withDistance(e Event, d Distance) Event {
	if m, ok := d.Meters(); ok {
		e.Distance = &m
	}

	return e
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
