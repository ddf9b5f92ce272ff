package proximity

import (
	"context"
	"time"
)

// Advertisement is a single BLE advertisement as seen by the scanner.
type Advertisement struct {
	// Address is the advertiser's address as reported by the adapter.
	Address string
	// Name is the advertised local name, possibly empty.
	Name string
	// RSSI is the received signal strength in dBm.
	RSSI int16
	// Timestamp is when the scanner received the advertisement.
	Timestamp time.Time
}

// Scanner is the BLE scanning subsystem.
// Start must not block: advertisements are delivered to handle from the scanner's own goroutine.
type Scanner interface {
	Start(ctx context.Context, handle func(Advertisement)) error
	Restart(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop() error
}

// Locker locks the host. The returned message describes what was done.
type Locker interface {
	Lock(ctx context.Context) (string, error)
}

// ScreenState reports whether the host session is locked.
type ScreenState interface {
	IsLocked(ctx context.Context) (bool, error)
}

// EventSink receives engine events. Emit is called from the monitor loop and must not block for long.
type EventSink interface {
	Emit(event Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// Emit calls f(event).
func (f EventSinkFunc) Emit(event Event) {
	f(event)
}

type discardSink struct{}

func (discardSink) Emit(Event) {}
