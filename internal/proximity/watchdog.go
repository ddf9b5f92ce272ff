package proximity

import (
	"context"
	"time"

	"github.com/proximity-lock/proximity-lock/internal/logger"
)

// watchdog is the periodic supervision step, run on the monitor loop.
func (m *Monitor) watchdog(ctx context.Context) {
	now := m.now()

	m.machine.Tick(ctx, now)

	if m.handler != nil {
		m.checkStuckHandler(ctx, now)
	} else {
		m.checkExternalLock(ctx, now)
	}

	// A paused scanner is silent on purpose.
	if m.handler == nil {
		m.checkScanner(ctx, now)
	}

	if now.Sub(m.stats.lastLiveness) >= m.timing.LivenessInterval {
		m.stats.lastLiveness = now

		logger.InfoKV(ctx, "monitor alive",
			"state", m.machine.State().String(),
			"callbacks", m.stats.callbacks,
			"matches", m.stats.matches,
			"errors", m.stats.errors,
			"dropped", m.dropped.Load(),
			"since_last_packet", m.health.Silence(now).Round(time.Second),
		)
	}
}

func (m *Monitor) checkStuckHandler(ctx context.Context, now time.Time) {
	running := now.Sub(m.handler.started)
	if running <= m.timing.StuckHandlerTimeout {
		return
	}

	logger.WarnKV(ctx, "lock handler stuck, forcing reset",
		"handler", m.handler.gen,
		"reason", m.handler.reason,
		"running", running.Round(time.Second),
	)

	m.handler.cancel()
	m.handler = nil
	m.stats.errors++
	m.smoother.Reset()
	m.health.Touch(now)

	m.emit(Event{Kind: EventHandlerReset, Time: now})

	opCtx, cancel := context.WithTimeout(ctx, m.timing.ScannerOpTimeout)
	defer cancel()

	// Still locked: the next tick hands the lock to a fresh handler, so the scanner stays paused.
	if locked, err := m.screen.IsLocked(opCtx); err == nil && locked {
		logger.Debug(ctx, "host still locked, scanner stays paused")

		return
	}

	// The handler may have left the scanner paused.
	if err := m.scanner.Resume(opCtx); err != nil {
		logger.WarnKV(ctx, "failed to resume scanner after handler reset", "error", err)
	}
}

func (m *Monitor) checkExternalLock(ctx context.Context, now time.Time) {
	opCtx, cancel := context.WithTimeout(ctx, m.timing.ScannerOpTimeout)
	locked, err := m.screen.IsLocked(opCtx)

	cancel()

	if err != nil {
		logger.DebugKV(ctx, "failed to query screen state", "error", err)

		return
	}

	if !locked {
		return
	}

	logger.Info(ctx, "host locked externally, pausing scanner until unlock")
	m.emit(Event{Kind: EventHostLocked, Time: now})
	m.startHandler(ctx, now, "external")
}

func (m *Monitor) checkScanner(ctx context.Context, now time.Time) {
	if !m.health.ShouldRestart(now) {
		return
	}

	silence := m.health.Silence(now)
	backoff := m.health.BeginRestart(now)

	opCtx, cancel := context.WithTimeout(ctx, m.timing.ScannerOpTimeout)
	err := m.scanner.Restart(opCtx)

	cancel()

	if err != nil {
		m.stats.errors++
		logger.ErrorKV(ctx, "scanner restart failed",
			"attempt", m.health.Restarts(),
			"next_backoff", backoff,
			"error", err,
		)
	} else {
		logger.WarnKV(ctx, "no advertisements, scanner restarted",
			"silence", silence.Round(time.Second),
			"attempt", m.health.Restarts(),
			"next_backoff", backoff,
		)
	}

	m.emit(Event{
		Kind:    EventScannerRestarted,
		Time:    now,
		Attempt: m.health.Restarts(),
		Backoff: backoff,
		Error:   errString(err),
	})
}
