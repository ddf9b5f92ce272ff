package proximity

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSettings is returned when engine settings cannot be used.
var ErrInvalidSettings = errors.New("invalid proximity settings")

const (
	// DefaultThreshold is the distance in meters past which the host is locked.
	DefaultThreshold = 2.0
	// DefaultReferenceRSSI is the expected RSSI at one meter.
	DefaultReferenceRSSI = -59.0
	// DefaultPathLossExponent models an indoor environment.
	DefaultPathLossExponent = 2.8
	// DefaultSampleWindow is the number of samples averaged per estimate.
	DefaultSampleWindow = 12
	// DefaultGracePeriod suppresses alerts after an unlock.
	DefaultGracePeriod = 30 * time.Second
	// DefaultLockLoopThreshold is the number of locks that makes a loop.
	DefaultLockLoopThreshold = 3
	// DefaultLockLoopWindow is the sliding window used to count locks.
	DefaultLockLoopWindow = 60 * time.Second
	// DefaultLockLoopPenalty is how long alerting stays paused after a loop.
	DefaultLockLoopPenalty = 120 * time.Second
)

// Settings is the immutable configuration of a monitoring session.
type Settings struct {
	// TargetAddress is the BLE address of the tracked device, matched case-insensitively.
	TargetAddress string
	// Threshold is the distance in meters past which the device counts as out of range.
	Threshold float64
	// ReferenceRSSI is the calibrated RSSI at one meter.
	ReferenceRSSI float64
	// PathLossExponent is the attenuation factor of the environment.
	PathLossExponent float64
	// SampleWindow is the smoothing window size.
	SampleWindow int
	// GracePeriod is how long out-of-range readings are ignored after an unlock.
	GracePeriod time.Duration
	// LockLoopThreshold is the number of locks within LockLoopWindow that pauses alerting.
	LockLoopThreshold int
	// LockLoopWindow is the sliding window for lock loop detection.
	LockLoopWindow time.Duration
	// LockLoopPenalty is how long alerting is paused once a loop is detected.
	LockLoopPenalty time.Duration
}

// DefaultSettings returns settings with every tunable at its default and no target.
func DefaultSettings() Settings {
	return Settings{
		Threshold:         DefaultThreshold,
		ReferenceRSSI:     DefaultReferenceRSSI,
		PathLossExponent:  DefaultPathLossExponent,
		SampleWindow:      DefaultSampleWindow,
		GracePeriod:       DefaultGracePeriod,
		LockLoopThreshold: DefaultLockLoopThreshold,
		LockLoopWindow:    DefaultLockLoopWindow,
		LockLoopPenalty:   DefaultLockLoopPenalty,
	}
}

// Validate rejects settings the engine cannot work with.
func (s Settings) Validate() error {
	switch {
	case s.TargetAddress == "":
		return fmt.Errorf("%w: target address is empty", ErrInvalidSettings)
	case s.Threshold <= 0:
		return fmt.Errorf("%w: threshold must be positive, got %v", ErrInvalidSettings, s.Threshold)
	case s.ReferenceRSSI >= 0:
		return fmt.Errorf("%w: reference RSSI must be negative, got %v", ErrInvalidSettings, s.ReferenceRSSI)
	case s.PathLossExponent <= 0:
		return fmt.Errorf("%w: path loss exponent must be positive, got %v", ErrInvalidSettings, s.PathLossExponent)
	case s.SampleWindow < 1:
		return fmt.Errorf("%w: sample window must be at least 1, got %d", ErrInvalidSettings, s.SampleWindow)
	case s.GracePeriod < 0:
		return fmt.Errorf("%w: grace period is negative", ErrInvalidSettings)
	case s.LockLoopThreshold < 1:
		return fmt.Errorf("%w: lock loop threshold must be at least 1, got %d", ErrInvalidSettings, s.LockLoopThreshold)
	case s.LockLoopWindow <= 0:
		return fmt.Errorf("%w: lock loop window must be positive", ErrInvalidSettings)
	case s.LockLoopPenalty < 0:
		return fmt.Errorf("%w: lock loop penalty is negative", ErrInvalidSettings)
	}

	return nil
}

// Timing holds the watchdog and lock-handling intervals.
type Timing struct {
	// WatchdogInterval is the period of the watchdog tick.
	WatchdogInterval time.Duration
	// HealthTimeout is how long the advertisement stream may stay silent before a restart.
	HealthTimeout time.Duration
	// BackoffBase is the delay enforced after the first restart.
	BackoffBase time.Duration
	// BackoffMax caps the restart backoff.
	BackoffMax time.Duration
	// StuckHandlerTimeout bounds the lock-handling sequence.
	StuckHandlerTimeout time.Duration
	// UnlockPollInterval is the period of the "is the screen still locked" poll.
	UnlockPollInterval time.Duration
	// LockSettleDelay is the pause between stopping the scanner and the first poll.
	LockSettleDelay time.Duration
	// ScannerOpTimeout bounds every individual scanner or screen call.
	ScannerOpTimeout time.Duration
	// ResumeAttempts is how many times the scanner is resumed before giving up.
	ResumeAttempts int
	// ResumeRetryDelay grows linearly with each failed resume attempt.
	ResumeRetryDelay time.Duration
	// LivenessInterval is the period of the "still alive" log line.
	LivenessInterval time.Duration
}

// DefaultTiming returns the production intervals.
func DefaultTiming() Timing {
	return Timing{
		WatchdogInterval:    2 * time.Second,
		HealthTimeout:       120 * time.Second,
		BackoffBase:         5 * time.Second,
		BackoffMax:          5 * time.Minute,
		StuckHandlerTimeout: 60 * time.Second,
		UnlockPollInterval:  2 * time.Second,
		LockSettleDelay:     2 * time.Second,
		ScannerOpTimeout:    5 * time.Second,
		ResumeAttempts:      5,
		ResumeRetryDelay:    2 * time.Second,
		LivenessInterval:    60 * time.Second,
	}
}

// Validate rejects non-positive intervals.
func (t Timing) Validate() error {
	for name, d := range map[string]time.Duration{
		"watchdog interval":     t.WatchdogInterval,
		"health timeout":        t.HealthTimeout,
		"backoff base":          t.BackoffBase,
		"stuck handler timeout": t.StuckHandlerTimeout,
		"unlock poll interval":  t.UnlockPollInterval,
		"scanner op timeout":    t.ScannerOpTimeout,
		"liveness interval":     t.LivenessInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidSettings, name)
		}
	}

	if t.BackoffMax < t.BackoffBase {
		return fmt.Errorf("%w: backoff max %v is below backoff base %v", ErrInvalidSettings, t.BackoffMax, t.BackoffBase)
	}

	if t.ResumeAttempts < 1 {
		return fmt.Errorf("%w: resume attempts must be at least 1", ErrInvalidSettings)
	}

	if t.LockSettleDelay < 0 || t.ResumeRetryDelay < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidSettings)
	}

	return nil
}
