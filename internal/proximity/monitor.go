package proximity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/proximity-lock/proximity-lock/internal/logger"
)

var (
	// ErrMissingCollaborator is returned by NewMonitor when a required dependency is nil.
	ErrMissingCollaborator = errors.New("missing monitor collaborator")
	// ErrScannerStart is returned by Run when the scanner cannot be started.
	ErrScannerStart = errors.New("failed to start scanner")
)

// advertisementBuffer is the capacity of the queue between the scanner and the loop.
const advertisementBuffer = 256

// MonitorOptions holds everything a monitoring session needs.
type MonitorOptions struct {
	// Settings is the session configuration.
	Settings Settings
	// Timing holds the watchdog intervals; zero means DefaultTiming.
	Timing Timing
	// Scanner delivers advertisements.
	Scanner Scanner
	// Locker locks the host.
	Locker Locker
	// Screen reports the host lock state.
	Screen ScreenState
	// Sink receives engine events; nil discards them.
	Sink EventSink
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Monitor is the proximity orchestrator. Every piece of engine state is confined to the
// goroutine running Run.
type Monitor struct {
	settings Settings
	timing   Timing
	scanner  Scanner
	locker   Locker
	screen   ScreenState
	sink     EventSink
	now      func() time.Time

	// adverts carries advertisements from the scanner goroutine to the loop.
	adverts chan Advertisement
	// reports carries lock-handler results back to the loop.
	reports chan handlerReport
	// dropped counts advertisements discarded because the queue was full.
	dropped atomic.Uint64

	smoother *Smoother
	machine  *Machine
	health   *ScannerHealth
	handler  *inflightHandler
	gen      uint64
	stats    loopStats
}

// loopStats feeds the periodic liveness log.
type loopStats struct {
	callbacks    uint64
	matches      uint64
	errors       uint64
	firstMatch   bool
	lastLiveness time.Time
}

// NewMonitor validates the options and builds a monitor.
func NewMonitor(opts MonitorOptions) (*Monitor, error) {
	if opts.Scanner == nil || opts.Locker == nil || opts.Screen == nil {
		return nil, fmt.Errorf("%w: scanner, locker and screen state are required", ErrMissingCollaborator)
	}

	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}

	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}

	if err := opts.Timing.Validate(); err != nil {
		return nil, err
	}

	if opts.Sink == nil {
		opts.Sink = discardSink{}
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Monitor{
		settings: opts.Settings,
		timing:   opts.Timing,
		scanner:  opts.Scanner,
		locker:   opts.Locker,
		screen:   opts.Screen,
		sink:     opts.Sink,
		now:      opts.Now,
		adverts:  make(chan Advertisement, advertisementBuffer),
		reports:  make(chan handlerReport),
		smoother: NewSmoother(opts.Settings.SampleWindow),
		machine:  NewMachine(opts.Settings, opts.Locker, opts.Sink),
	}, nil
}

// Run starts the scanner and processes advertisements, watchdog ticks and lock-handler
// reports until ctx is cancelled. Cancellation is a normal exit and returns nil.
func (m *Monitor) Run(ctx context.Context) error {
	ctx = logger.WithKV(ctx, "target", m.settings.TargetAddress)

	if err := m.scanner.Start(ctx, m.enqueue); err != nil {
		return fmt.Errorf("%w: %w", ErrScannerStart, err)
	}

	now := m.now()
	m.health = NewScannerHealth(now, m.timing)
	m.stats.lastLiveness = now

	logger.InfoKV(ctx, "proximity monitoring started",
		"threshold", m.settings.Threshold,
		"window", m.settings.SampleWindow,
		"reference_rssi", m.settings.ReferenceRSSI,
		"path_loss_exponent", m.settings.PathLossExponent,
	)

	ticker := time.NewTicker(m.timing.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown(ctx)

			return nil
		case adv := <-m.adverts:
			m.safely(ctx, "advertisement", func() { m.handleAdvertisement(ctx, adv) })
		case report := <-m.reports:
			m.safely(ctx, "lock handler report", func() { m.finishHandler(ctx, report) })
		case <-ticker.C:
			m.safely(ctx, "watchdog", func() { m.watchdog(ctx) })
		}
	}
}

// State returns the machine state. Only meaningful from the loop or after Run returned.
func (m *Monitor) State() AlertState {
	return m.machine.State()
}

// enqueue is the scanner callback. It never blocks the scanner.
func (m *Monitor) enqueue(adv Advertisement) {
	select {
	case m.adverts <- adv:
	default:
		m.dropped.Add(1)
	}
}

func (m *Monitor) handleAdvertisement(ctx context.Context, adv Advertisement) {
	now := m.now()
	m.stats.callbacks++

	if m.health.RecordAdvertisement(now) {
		logger.Info(ctx, "scanner recovered, advertisements flowing again")
		m.emit(Event{Kind: EventScannerRecovered, Time: now})
	}

	if !strings.EqualFold(adv.Address, m.settings.TargetAddress) {
		return
	}

	m.stats.matches++

	if !m.stats.firstMatch {
		m.stats.firstMatch = true
		logger.InfoKV(ctx, "target device found", "name", adv.Name, "rssi", adv.RSSI)
	}

	if m.handler != nil {
		// Samples taken around a lock are meaningless; the buffer is cleared after the unlock.
		return
	}

	if adv.RSSI == InvalidRSSI {
		logger.Debug(ctx, "invalid RSSI reading skipped")

		return
	}

	m.smoother.Push(adv.RSSI)

	if !m.smoother.Full() {
		logger.DebugKV(ctx, "warming up", "samples", m.smoother.Len(), "window", m.smoother.Cap())

		return
	}

	mean, _ := m.smoother.Mean()
	distance := EstimateDistance(mean, m.settings.ReferenceRSSI, m.settings.PathLossExponent)

	logger.DebugKV(ctx, "sample processed", "rssi", adv.RSSI, "smoothed", mean, "distance", distance.String())
	m.emit(withDistance(Event{
		Kind:     EventSampleProcessed,
		Time:     now,
		RSSI:     adv.RSSI,
		Smoothed: mean,
	}, distance))

	if m.machine.Observe(ctx, now, distance) {
		m.startHandler(ctx, now, "self")
	}
}

// safely isolates a panic to the step that caused it.
func (m *Monitor) safely(ctx context.Context, step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.stats.errors++

			logger.ErrorKV(ctx, "monitor step panicked", "step", step, "panic", r)
			m.emit(Event{Kind: EventCallbackError, Time: m.now(), Error: fmt.Sprint(r), Message: step})
		}
	}()

	fn()
}

func (m *Monitor) shutdown(ctx context.Context) {
	if m.handler != nil {
		m.handler.cancel()
		m.handler = nil
	}

	if err := m.scanner.Stop(); err != nil {
		logger.WarnKV(ctx, "failed to stop scanner", "error", err)
	}

	logger.InfoKV(ctx, "proximity monitoring stopped",
		"state", m.machine.State().String(),
		"locks", m.machine.Locks(),
		"dropped", m.dropped.Load(),
	)
}

func (m *Monitor) emit(e Event) {
	e.State = m.machine.State()
	e.Address = m.settings.TargetAddress
	m.sink.Emit(e)
}
