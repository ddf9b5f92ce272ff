package proximity

import (
	"context"
	"fmt"
	"time"

	"github.com/proximity-lock/proximity-lock/internal/logger"
)

// inflightHandler is the loop's view of a running lock-handling sequence.
type inflightHandler struct {
	gen     uint64
	reason  string
	started time.Time
	cancel  context.CancelFunc
}

// handlerReport is sent by the handler goroutine once the host is unlocked.
type handlerReport struct {
	gen uint64
	// resumeErr is the last scanner resume error, nil when scanning resumed.
	resumeErr error
}

// lockHandler waits out a host lock with the scanner paused.
// It only talks to collaborators and never touches engine state.
type lockHandler struct {
	gen     uint64
	scanner Scanner
	screen  ScreenState
	timing  Timing
}

func (m *Monitor) startHandler(ctx context.Context, now time.Time, reason string) {
	m.gen++

	hctx, cancel := context.WithCancel(logger.WithKV(ctx, "handler", m.gen))
	m.handler = &inflightHandler{gen: m.gen, reason: reason, started: now, cancel: cancel}

	h := &lockHandler{gen: m.gen, scanner: m.scanner, screen: m.screen, timing: m.timing}

	go func() {
		report := h.run(hctx)

		select {
		case m.reports <- report:
		case <-hctx.Done():
		}
	}()
}

// finishHandler applies the result of a lock-handling sequence on the loop.
func (m *Monitor) finishHandler(ctx context.Context, report handlerReport) {
	if m.handler == nil || m.handler.gen != report.gen {
		logger.DebugKV(ctx, "stale lock handler report dropped", "handler", report.gen)

		return
	}

	m.handler.cancel()
	m.handler = nil

	now := m.now()
	m.smoother.Reset()
	m.health.Touch(now)

	if report.resumeErr != nil {
		m.stats.errors++
		logger.ErrorKV(ctx, "scanner did not resume after unlock, watchdog will restart it", "error", report.resumeErr)
	}

	m.emit(Event{Kind: EventHostUnlocked, Time: now, Error: errString(report.resumeErr)})
	m.machine.HostUnlocked(ctx, now)
}

func (h *lockHandler) run(ctx context.Context) handlerReport {
	report := handlerReport{gen: h.gen}

	// Stop scanning while the host is locked.
	if err := h.call(ctx, h.scanner.Pause); err != nil {
		logger.WarnKV(ctx, "failed to pause scanner", "error", err)
	}

	if !sleep(ctx, h.timing.LockSettleDelay) {
		return report
	}

	logger.Info(ctx, "waiting for the host to be unlocked")

	for {
		locked, err := h.isLocked(ctx)
		if err != nil {
			logger.WarnKV(ctx, "failed to query screen state, assuming unlocked", "error", err)
		}

		if err != nil || !locked {
			break
		}

		if !sleep(ctx, h.timing.UnlockPollInterval) {
			return report
		}
	}

	logger.Info(ctx, "host unlocked, resuming scanner")

	for attempt := range h.timing.ResumeAttempts {
		report.resumeErr = h.call(ctx, h.scanner.Resume)
		if report.resumeErr == nil {
			break
		}

		logger.WarnKV(ctx, "failed to resume scanner",
			"attempt", attempt+1,
			"of", h.timing.ResumeAttempts,
			"error", report.resumeErr,
		)

		if attempt+1 < h.timing.ResumeAttempts && !sleep(ctx, h.timing.ResumeRetryDelay*time.Duration(attempt+1)) {
			return report
		}
	}

	if report.resumeErr != nil {
		report.resumeErr = fmt.Errorf("resume scanner after %d attempts: %w", h.timing.ResumeAttempts, report.resumeErr)
	}

	return report
}

func (h *lockHandler) call(ctx context.Context, op func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, h.timing.ScannerOpTimeout)
	defer cancel()

	return op(opCtx)
}

func (h *lockHandler) isLocked(ctx context.Context) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, h.timing.ScannerOpTimeout)
	defer cancel()

	return h.screen.IsLocked(opCtx)
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
