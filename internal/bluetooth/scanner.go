package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/proximity-lock/proximity-lock/internal/logger"
	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

// ErrScannerStopped is returned when a stopped scanner is asked to scan again.
var ErrScannerStopped = errors.New("scanner stopped")

// BLEScanner scans with the system Bluetooth adapter.
// Scanning runs on its own goroutine; Pause and Restart wait for it to finish.
type BLEScanner struct {
	// adapter is the system adapter.
	adapter *bluetooth.Adapter

	mu sync.Mutex
	// ctx carries the scoped logger for the scan goroutine.
	ctx context.Context //nolint:containedctx // Only used for logging from adapter callbacks.
	// handle receives every advertisement.
	handle func(proximity.Advertisement)
	// enabled is set once the adapter was enabled.
	enabled bool
	// done is closed when the current Scan call returns; nil when not scanning.
	done chan struct{}
	// stopped is set by Stop.
	stopped bool
}

// NewBLEScanner creates a scanner for the default adapter.
func NewBLEScanner() *BLEScanner {
	return &BLEScanner{adapter: bluetooth.DefaultAdapter}
}

// Start enables the adapter and begins scanning.
func (s *BLEScanner) Start(ctx context.Context, handle func(proximity.Advertisement)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = logger.WithName(ctx, "ble")
	s.handle = handle

	if !s.enabled {
		if err := s.adapter.Enable(); err != nil {
			return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
		}

		s.enabled = true
	}

	return s.startLocked()
}

// Pause stops scanning and waits for the scan goroutine to exit.
func (s *BLEScanner) Pause(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	if err := s.adapter.StopScan(); err != nil {
		return fmt.Errorf("stop scan: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for scan to stop: %w", ctx.Err())
	}
}

// Resume starts scanning again if it is not running.
func (s *BLEScanner) Resume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return nil
	}

	return s.startLocked()
}

// Restart stops and restarts scanning.
func (s *BLEScanner) Restart(ctx context.Context) error {
	if err := s.Pause(ctx); err != nil {
		logger.WarnKV(ctx, "scan did not stop cleanly before restart", "error", err)
	}

	return s.Resume(ctx)
}

// Stop ends scanning for good.
func (s *BLEScanner) Stop() error {
	s.mu.Lock()
	s.stopped = true
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	return s.adapter.StopScan()
}

func (s *BLEScanner) startLocked() error {
	if s.stopped {
		return ErrScannerStopped
	}

	done := make(chan struct{})
	s.done = done

	go func() {
		defer func() {
			s.mu.Lock()
			if s.done == done {
				s.done = nil
			}
			s.mu.Unlock()

			close(done)
		}()

		if err := s.adapter.Scan(s.onResult); err != nil {
			logger.ErrorKV(s.ctx, "BLE scan ended with error", "error", err)
		}
	}()

	return nil
}

func (s *BLEScanner) onResult(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
	address := result.Address.String()
	name := result.LocalName()

	if name == "" {
		if mfrs := result.ManufacturerData(); len(mfrs) > 0 {
			name = fallbackName(mfrs[0].CompanyID, address)
		}
	}

	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()

	if handle == nil {
		return
	}

	handle(proximity.Advertisement{
		Address:   address,
		Name:      name,
		RSSI:      result.RSSI,
		Timestamp: time.Now(),
	})
}

var _ proximity.Scanner = (*BLEScanner)(nil)
