package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/proximity-lock/proximity-lock/internal/logger"
	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

// Config holds every setting of the proximity-lock binaries.
type Config struct {
	// Target identifies the tracked device.
	Target TargetConfig `yaml:"target"`
	// Proximity holds the distance estimation parameters.
	Proximity ProximityConfig `yaml:"proximity"`
	// Safety holds the grace period and lock loop protection.
	Safety SafetyConfig `yaml:"safety"`
	// Watchdog holds the supervision intervals.
	Watchdog WatchdogConfig `yaml:"watchdog"`
	// Logging configures log level and output.
	Logging LoggingConfig `yaml:"logging"`
	// JournalFile is the CBOR event journal; empty disables it.
	JournalFile string `yaml:"journal_file,omitempty"`
	// HealthAddress is the gRPC health endpoint of a running monitor; empty disables it.
	HealthAddress string `yaml:"health_addr,omitempty"`
	// SessionFile records the running daemon; empty means DefaultSessionFile.
	SessionFile string `yaml:"session_file,omitempty"`
	// UpdateFolder is the URL where update artifacts are hosted.
	UpdateFolder string `yaml:"update_folder,omitempty"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
}

// TargetConfig identifies the tracked device.
type TargetConfig struct {
	// Address is a MAC address, or a CoreBluetooth UUID on macOS.
	Address string `yaml:"address"`
	// Name is an optional label used in logs.
	Name string `yaml:"name,omitempty"`
}

// ProximityConfig holds the distance estimation parameters.
type ProximityConfig struct {
	// ThresholdMeters is the distance past which the host is locked.
	ThresholdMeters float64 `yaml:"threshold_m"`
	// TxPowerAt1m is the calibrated RSSI at one meter.
	TxPowerAt1m float64 `yaml:"tx_power_at_1m"`
	// PathLossExponent models the environment.
	PathLossExponent float64 `yaml:"path_loss_exponent"`
	// SampleWindow is the number of readings averaged per estimate.
	SampleWindow int `yaml:"sample_window"`
}

// SafetyConfig holds the grace period and lock loop protection.
type SafetyConfig struct {
	// GracePeriod suppresses alerts after an unlock.
	GracePeriod time.Duration `yaml:"grace_period"`
	// LockLoopThreshold is the number of locks that counts as a loop.
	LockLoopThreshold int `yaml:"lock_loop_threshold"`
	// LockLoopWindow is the window the locks are counted in.
	LockLoopWindow time.Duration `yaml:"lock_loop_window"`
	// LockLoopPenalty is how long alerting pauses after a loop.
	LockLoopPenalty time.Duration `yaml:"lock_loop_penalty"`
}

// WatchdogConfig holds the supervision intervals.
type WatchdogConfig struct {
	// Interval is the watchdog period.
	Interval time.Duration `yaml:"interval"`
	// HealthTimeout is how long the scanner may stay silent.
	HealthTimeout time.Duration `yaml:"health_timeout"`
	// BackoffBase is the first restart backoff.
	BackoffBase time.Duration `yaml:"backoff_base"`
	// BackoffMax caps the restart backoff.
	BackoffMax time.Duration `yaml:"backoff_max"`
	// StuckHandlerTimeout bounds the lock-handling sequence.
	StuckHandlerTimeout time.Duration `yaml:"stuck_handler_timeout"`
	// UnlockPollInterval is how often the screen state is polled while locked.
	UnlockPollInterval time.Duration `yaml:"unlock_poll_interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// File additionally writes logs to this path; daemons default to DefaultLogFile.
	File string `yaml:"file,omitempty"`
}

const (
	// DefaultConfigFilename is the default settings filename.
	DefaultConfigFilename = "proximity-lock.yaml"
	// DefaultSessionFilename is the daemon session record filename in the home directory.
	DefaultSessionFilename = ".proximity-lock-session.yaml"
	// DefaultLogFilename is the daemon log filename in the home directory.
	DefaultLogFilename = ".proximity-lock.log"
	// DefaultHealthAddress is the default gRPC health endpoint.
	DefaultHealthAddress = "127.0.0.1:47811"
	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second
	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Default returns a configuration with every default filled in and no target.
func Default() *Config {
	cfg := &Config{HealthAddress: DefaultHealthAddress}

	// Validation only fails on explicitly set bad values.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := &Config{HealthAddress: DefaultHealthAddress}
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults for zero values and rejects values that cannot work.
//
//nolint:cyclop,funlen // A flat list of checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Target.Address != "" {
		address, err := NormalizeAddress(cfg.Target.Address)
		if err != nil {
			return err
		}

		cfg.Target.Address = address
	}

	p := &cfg.Proximity
	setDefault(&p.ThresholdMeters, proximity.DefaultThreshold)
	setDefault(&p.TxPowerAt1m, proximity.DefaultReferenceRSSI)
	setDefault(&p.PathLossExponent, proximity.DefaultPathLossExponent)
	setDefault(&p.SampleWindow, proximity.DefaultSampleWindow)

	s := &cfg.Safety
	setDefault(&s.GracePeriod, proximity.DefaultGracePeriod)
	setDefault(&s.LockLoopThreshold, proximity.DefaultLockLoopThreshold)
	setDefault(&s.LockLoopWindow, proximity.DefaultLockLoopWindow)
	setDefault(&s.LockLoopPenalty, proximity.DefaultLockLoopPenalty)

	timing := proximity.DefaultTiming()
	w := &cfg.Watchdog
	setDefault(&w.Interval, timing.WatchdogInterval)
	setDefault(&w.HealthTimeout, timing.HealthTimeout)
	setDefault(&w.BackoffBase, timing.BackoffBase)
	setDefault(&w.BackoffMax, timing.BackoffMax)
	setDefault(&w.StuckHandlerTimeout, timing.StuckHandlerTimeout)
	setDefault(&w.UnlockPollInterval, timing.UnlockPollInterval)

	setDefault(&cfg.Logging.Level, "info")
	setDefault(&cfg.Timeout, DefaultTimeout)

	switch {
	case p.ThresholdMeters < 0:
		return fmt.Errorf("%w: threshold_m must be positive", ErrInvalidConfig)
	case p.TxPowerAt1m > 0:
		return fmt.Errorf("%w: tx_power_at_1m must be negative dBm", ErrInvalidConfig)
	case p.PathLossExponent < 0:
		return fmt.Errorf("%w: path_loss_exponent must be positive", ErrInvalidConfig)
	case p.SampleWindow < 0:
		return fmt.Errorf("%w: sample_window must be positive", ErrInvalidConfig)
	case s.GracePeriod < 0, s.LockLoopWindow < 0, s.LockLoopPenalty < 0:
		return fmt.Errorf("%w: safety durations must not be negative", ErrInvalidConfig)
	case s.LockLoopThreshold < 0:
		return fmt.Errorf("%w: lock_loop_threshold must be positive", ErrInvalidConfig)
	}

	if _, ok := logger.ParseLogLevel(cfg.Logging.Level); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, cfg.Logging.Level)
	}

	if err := cfg.Timing().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if cfg.HealthAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.HealthAddress); err != nil {
			return fmt.Errorf("%w: invalid health address: %w", ErrInvalidConfig, err)
		}
	}

	if cfg.UpdateFolder != "" {
		if _, err := url.ParseRequestURI(cfg.UpdateFolder); err != nil {
			return fmt.Errorf("%w: invalid update folder URI: %w", ErrInvalidConfig, err)
		}
	}

	return nil
}

// NormalizeAddress accepts a MAC address or a CoreBluetooth UUID and returns it upper-cased.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)

	if mac, err := net.ParseMAC(address); err == nil && len(mac) == 6 {
		return strings.ToUpper(mac.String()), nil
	}

	if id, err := uuid.Parse(address); err == nil {
		return strings.ToUpper(id.String()), nil
	}

	return "", fmt.Errorf("%w: %q is neither a MAC address nor a device UUID", ErrInvalidConfig, address)
}

// SessionPath returns the session record path, defaulting to DefaultSessionFile.
func (c *Config) SessionPath() string {
	if c.SessionFile != "" {
		return c.SessionFile
	}

	return DefaultSessionFile()
}

// DefaultSessionFile is where daemons record themselves unless configured otherwise.
// It lives in the home directory so every working directory finds the same monitor.
func DefaultSessionFile() string {
	return homePath(DefaultSessionFilename)
}

// DefaultLogFile is where daemons log unless configured otherwise.
func DefaultLogFile() string {
	return homePath(DefaultLogFilename)
}

// homePath places name in the home directory, or the working directory when there is none.
func homePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return name
	}

	return filepath.Join(home, name)
}

// Settings converts the file into engine settings.
func (c *Config) Settings() proximity.Settings {
	return proximity.Settings{
		TargetAddress:     c.Target.Address,
		Threshold:         c.Proximity.ThresholdMeters,
		ReferenceRSSI:     c.Proximity.TxPowerAt1m,
		PathLossExponent:  c.Proximity.PathLossExponent,
		SampleWindow:      c.Proximity.SampleWindow,
		GracePeriod:       c.Safety.GracePeriod,
		LockLoopThreshold: c.Safety.LockLoopThreshold,
		LockLoopWindow:    c.Safety.LockLoopWindow,
		LockLoopPenalty:   c.Safety.LockLoopPenalty,
	}
}

// Timing converts the watchdog section into engine timing. Intervals without a
// setting keep their defaults.
func (c *Config) Timing() proximity.Timing {
	timing := proximity.DefaultTiming()
	timing.WatchdogInterval = c.Watchdog.Interval
	timing.HealthTimeout = c.Watchdog.HealthTimeout
	timing.BackoffBase = c.Watchdog.BackoffBase
	timing.BackoffMax = c.Watchdog.BackoffMax
	timing.StuckHandlerTimeout = c.Watchdog.StuckHandlerTimeout
	timing.UnlockPollInterval = c.Watchdog.UnlockPollInterval

	return timing
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
