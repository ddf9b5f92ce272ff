package eventlog

import (
	"context"

	"github.com/proximity-lock/proximity-lock/internal/logger"
	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

// Noop discards every event.
type Noop struct{}

// Emit discards the event.
func (Noop) Emit(proximity.Event) {}

// Multi fans every event out to several sinks, in order.
type Multi []proximity.EventSink

// NewMulti skips nil sinks.
func NewMulti(sinks ...proximity.EventSink) Multi {
	out := make(Multi, 0, len(sinks))

	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}

	return out
}

// Emit forwards the event to every sink.
func (m Multi) Emit(event proximity.Event) {
	for _, s := range m {
		s.Emit(event)
	}
}

// Stamped sets the session identifier on every event before forwarding it.
type Stamped struct {
	// Session is the identifier written into Event.Session.
	Session string
	// Next receives the stamped event.
	Next proximity.EventSink
}

// Emit stamps and forwards the event.
func (s Stamped) Emit(event proximity.Event) {
	event.Session = s.Session
	s.Next.Emit(event)
}

// LoggerSink writes events as structured log entries.
// Samples are logged at debug level, everything else at info.
type LoggerSink struct {
	ctx context.Context //nolint:containedctx // The context only carries the scoped logger.
}

// NewLoggerSink logs through the logger stored in ctx.
func NewLoggerSink(ctx context.Context) *LoggerSink {
	return &LoggerSink{ctx: logger.WithName(ctx, "events")}
}

// Emit logs the event.
func (s *LoggerSink) Emit(event proximity.Event) {
	kvs := Fields(event)

	if event.Kind == proximity.EventSampleProcessed {
		logger.DebugKV(s.ctx, string(event.Kind), kvs...)

		return
	}

	logger.InfoKV(s.ctx, string(event.Kind), kvs...)
}

// Fields flattens an event into key-value pairs, skipping fields that do not apply.
func Fields(event proximity.Event) []any {
	kvs := []any{"state", event.State.String()}

	if event.RSSI != 0 {
		kvs = append(kvs, "rssi", event.RSSI)
	}

	if event.Smoothed != 0 {
		kvs = append(kvs, "smoothed", event.Smoothed)
	}

	if event.Distance != nil {
		kvs = append(kvs, "distance", event.DistanceValue().String())
	}

	if event.Attempt != 0 {
		kvs = append(kvs, "attempt", event.Attempt)
	}

	if event.Backoff != 0 {
		kvs = append(kvs, "backoff", event.Backoff)
	}

	if !event.Until.IsZero() {
		kvs = append(kvs, "until", event.Until)
	}

	if event.Message != "" {
		kvs = append(kvs, "message", event.Message)
	}

	if event.Error != "" {
		kvs = append(kvs, "error", event.Error)
	}

	if event.Session != "" {
		kvs = append(kvs, "session", event.Session)
	}

	return kvs
}

var (
	_ proximity.EventSink = Noop{}
	_ proximity.EventSink = Multi(nil)
	_ proximity.EventSink = Stamped{}
	_ proximity.EventSink = (*LoggerSink)(nil)
)
