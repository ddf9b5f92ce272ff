package proximity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/proximity-lock/proximity-lock/internal/logger"
)

// defaultLockTimeout bounds a single call to the lock action.
const defaultLockTimeout = 10 * time.Second

// ErrLockPanicked replaces a panic raised by the lock action.
var ErrLockPanicked = errors.New("lock action panicked")

// Machine is the alert/grace/lock-loop state machine.
// It is not safe for concurrent use; the monitor loop is its only caller.
type Machine struct {
	// settings is the session configuration.
	settings Settings
	// locker performs the lock action.
	locker Locker
	// sink receives every transition.
	sink EventSink
	// state is the current alert state.
	state AlertState
	// history counts recent self-triggered locks.
	history *LockHistory
	// graceUntil is the end of the grace window, valid in GraceSuppressed.
	graceUntil time.Time
	// pausedUntil is the end of the loop penalty, valid in Paused.
	pausedUntil time.Time
	// locks is the total number of lock invocations in this session.
	locks int
}

// NewMachine creates a machine in the Monitoring state.
func NewMachine(settings Settings, locker Locker, sink EventSink) *Machine {
	if sink == nil {
		sink = discardSink{}
	}

	return &Machine{
		settings: settings,
		locker:   locker,
		sink:     sink,
		state:    Monitoring,
		history:  NewLockHistory(settings.LockLoopWindow),
	}
}

// State returns the current alert state.
func (m *Machine) State() AlertState {
	return m.state
}

// Locks returns how many times the lock action was invoked.
func (m *Machine) Locks() int {
	return m.locks
}

// Observe feeds a distance estimate into the machine.
// It returns true when this sample triggered a successful lock, so the caller can start
// waiting for the unlock. Unknown distances never cause a transition.
func (m *Machine) Observe(ctx context.Context, now time.Time, d Distance) bool {
	m.expire(ctx, now)

	if !d.Known() {
		return false
	}

	far := d.Beyond(m.settings.Threshold)

	switch m.state {
	case Monitoring:
		if far {
			return m.raise(ctx, now, d)
		}
	case OutOfRange:
		if !far {
			m.state = Monitoring
			logger.InfoKV(ctx, "device back in range", "distance", d.String())
			m.emit(withDistance(Event{Kind: EventAlertCleared, Time: now}, d))
		}
	case GraceSuppressed:
		if far {
			logger.DebugKV(ctx, "out of range during grace period, ignored",
				"distance", d.String(),
				"grace_left", m.graceUntil.Sub(now).Round(time.Second),
			)
		}
	case Paused:
		if far {
			logger.DebugKV(ctx, "out of range while paused, ignored",
				"distance", d.String(),
				"paused_left", m.pausedUntil.Sub(now).Round(time.Second),
			)
		}
	}

	return false
}

// HostUnlocked reports that the host was locked and has now been unlocked.
// It opens (or reopens) the grace window unless alerting is paused.
func (m *Machine) HostUnlocked(ctx context.Context, now time.Time) {
	m.expire(ctx, now)

	switch m.state {
	case Monitoring, OutOfRange, GraceSuppressed:
		m.state = GraceSuppressed
		m.graceUntil = now.Add(m.settings.GracePeriod)

		logger.InfoKV(ctx, "host unlocked, grace period started", "until", m.graceUntil.Format(time.TimeOnly))
		m.emit(Event{Kind: EventGraceStarted, Time: now, Until: m.graceUntil})
	case Paused:
		logger.InfoKV(ctx, "host unlocked while paused", "until", m.pausedUntil.Format(time.TimeOnly))
	}
}

// Tick expires the grace and pause windows without waiting for a sample.
func (m *Machine) Tick(ctx context.Context, now time.Time) {
	m.expire(ctx, now)
}

func (m *Machine) expire(ctx context.Context, now time.Time) {
	switch m.state {
	case GraceSuppressed:
		if now.Before(m.graceUntil) {
			return
		}

		m.state = Monitoring

		logger.Info(ctx, "grace period ended, monitoring resumed")
		m.emit(Event{Kind: EventGraceEnded, Time: now})
	case Paused:
		if now.Before(m.pausedUntil) {
			return
		}

		m.state = Monitoring
		m.history.Reset()

		logger.Info(ctx, "lock loop penalty over, monitoring resumed")
		m.emit(Event{Kind: EventLoopResumed, Time: now})
	case Monitoring, OutOfRange:
	}
}

// raise handles the Monitoring -> OutOfRange edge. The lock action runs exactly once here.
func (m *Machine) raise(ctx context.Context, now time.Time, d Distance) bool {
	m.state = OutOfRange
	m.locks++

	message, err := m.lock(ctx)

	event := withDistance(Event{
		Kind:    EventAlertRaised,
		Time:    now,
		Attempt: m.locks,
		Message: message,
		Error:   errString(err),
	}, d)

	if err != nil {
		// The device is gone either way; the next crossing will try again.
		logger.ErrorKV(ctx, "device out of range, lock failed",
			"distance", d.String(),
			"error", err,
		)
		m.emit(event)

		return false
	}

	logger.WarnKV(ctx, "device out of range, host locked",
		"distance", d.String(),
		"threshold", m.settings.Threshold,
		"message", message,
	)
	m.emit(event)

	m.history.Record(now)

	if count := m.history.Count(now); count >= m.settings.LockLoopThreshold {
		m.state = Paused
		m.pausedUntil = now.Add(m.settings.LockLoopPenalty)

		logger.WarnKV(ctx, "lock loop detected, alerting paused",
			"locks", count,
			"window", m.settings.LockLoopWindow,
			"until", m.pausedUntil.Format(time.TimeOnly),
		)
		m.emit(Event{Kind: EventLoopPaused, Time: now, Attempt: count, Until: m.pausedUntil})
	}

	return true
}

// lock runs the lock action. A panic is reported as a failed lock so the edge
// still emits its event.
func (m *Machine) lock(ctx context.Context) (message string, err error) {
	lockCtx, cancel := context.WithTimeout(ctx, defaultLockTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLockPanicked, r)
		}
	}()

	return m.locker.Lock(lockCtx)
}

func (m *Machine) emit(e Event) {
	e.State = m.state
	e.Address = m.settings.TargetAddress
	m.sink.Emit(e)
}
