package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/proximity-lock/proximity-lock/internal/bluetooth"
	"github.com/proximity-lock/proximity-lock/internal/config"
	domain "github.com/proximity-lock/proximity-lock/internal/domain/session"
	"github.com/proximity-lock/proximity-lock/internal/eventlog"
	"github.com/proximity-lock/proximity-lock/internal/logger"
	"github.com/proximity-lock/proximity-lock/internal/proximity"
	repository "github.com/proximity-lock/proximity-lock/internal/repository/session"
	"github.com/proximity-lock/proximity-lock/internal/service/common"
	"github.com/proximity-lock/proximity-lock/internal/service/health"
	"github.com/proximity-lock/proximity-lock/internal/service/power"
)

// DemoTarget is the address of the synthetic device used in demo mode.
const DemoTarget = "D0:E0:00:00:00:01"

// ErrNoTarget indicates that no device address was given.
var ErrNoTarget = errors.New("no target device address: pass one as an argument or set target.address")

// Options controls a monitoring session.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Address overrides the configured target address.
	Address string
	// Demo replaces the BLE adapter with a synthetic device and never locks.
	Demo bool
	// DryRun logs instead of locking the host.
	DryRun bool
	// Daemon writes logs to a file and maintains the session record.
	Daemon bool
	// Verbose logs every engine event, samples included.
	Verbose bool
	// SessionID is stamped on journal events; a random one is generated when empty.
	SessionID string

	// Scanner, Locker and Screen replace the platform collaborators when set.
	Scanner proximity.Scanner
	Locker  proximity.Locker
	Screen  proximity.ScreenState
}

// Run monitors the target until ctx is canceled.
//
//nolint:cyclop,funlen // Wiring code, linear and easier to follow in one place.
func Run(ctx context.Context, opts *Options) error {
	// Load settings; the file is optional when the address comes from the command line.
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err = applyOverrides(cfg, opts); err != nil {
		return err
	}

	// Set up logging before anything else can log.
	ctx, closeLogs, err := setupLogging(ctx, cfg, opts)
	if err != nil {
		return err
	}

	defer closeLogs()

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx = logger.WithName(ctx, "monitor")
	ctx = logger.WithKV(ctx, "session", sessionID)

	// Collect event sinks.
	sinks := []proximity.EventSink{}

	// Verbose sessions log every event, samples included.
	if opts.Verbose {
		sinks = append(sinks, eventlog.NewLoggerSink(logger.WithContextLevel(ctx, zap.DebugLevel)))
	}

	if cfg.JournalFile != "" {
		journal, err := eventlog.OpenFile(ctx, cfg.JournalFile)
		if err != nil {
			return err
		}

		defer func() {
			_ = journal.Close()
		}()

		sinks = append(sinks, journal)
	}

	// Start the health endpoint alongside the monitor.
	var wg sync.WaitGroup

	healthCtx, stopHealth := context.WithCancel(ctx)
	defer func() {
		stopHealth()
		wg.Wait()
	}()

	if cfg.HealthAddress != "" {
		healthServer := health.NewServer(cfg.HealthAddress)
		sinks = append(sinks, healthServer)

		wg.Go(func() {
			if err := healthServer.Run(healthCtx); err != nil {
				logger.ErrorKV(ctx, "Health endpoint failed", "error", err)
			}
		})
	}

	sink := eventlog.Stamped{Session: sessionID, Next: eventlog.NewMulti(sinks...)}

	scanner, locker, screen := collaborators(cfg, opts)

	monitor, err := proximity.NewMonitor(proximity.MonitorOptions{
		Settings: cfg.Settings(),
		Timing:   cfg.Timing(),
		Scanner:  scanner,
		Locker:   locker,
		Screen:   screen,
		Sink:     sink,
	})
	if err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}

	// Background monitors publish a session record for stop/status.
	if opts.Daemon {
		repo := repository.NewFileRepository(cfg.SessionPath())
		if err = saveSession(ctx, repo, cfg, sessionID); err != nil {
			return err
		}

		defer func() {
			if err := repo.Remove(context.WithoutCancel(ctx)); err != nil {
				logger.WarnKV(ctx, "Failed to remove session record", "error", err)
			}
		}()
	}

	logger.InfoKV(ctx, "Monitoring device",
		"target", cfg.Target.Address,
		"name", cfg.Target.Name,
		"demo", opts.Demo,
		"dry_run", opts.DryRun,
	)

	return monitor.Run(ctx)
}

// applyOverrides puts command line values on top of the file.
func applyOverrides(cfg *config.Config, opts *Options) error {
	if opts.Address != "" {
		address, err := config.NormalizeAddress(opts.Address)
		if err != nil {
			return err
		}

		cfg.Target.Address = address
	}

	if opts.Demo && cfg.Target.Address == "" {
		cfg.Target.Address = DemoTarget
	}

	if cfg.Target.Address == "" {
		return ErrNoTarget
	}

	if opts.Daemon && cfg.Logging.File == "" {
		cfg.Logging.File = config.DefaultLogFile()
	}

	return nil
}

// setupLogging builds the session logger and stores it in the returned context.
func setupLogging(ctx context.Context, cfg *config.Config, opts *Options) (context.Context, func(), error) {
	level, _ := logger.ParseLogLevel(cfg.Logging.Level)
	atomicLevel := zap.NewAtomicLevelAt(level)

	if cfg.Logging.File == "" {
		return logger.ToContext(ctx, logger.New(atomicLevel)), func() {}, nil
	}

	paths := []string{cfg.Logging.File}
	if !opts.Daemon {
		paths = append(paths, "stdout")
	}

	l, closeOutputs, err := logger.NewWithOutputs(atomicLevel, paths)
	if err != nil {
		return ctx, nil, err
	}

	return logger.ToContext(ctx, l), func() {
		_ = l.Sync()

		closeOutputs()
	}, nil
}

// collaborators picks the platform implementations unless the options override them.
//
//nolint:ireturn // The engine consumes interfaces.
func collaborators(cfg *config.Config, opts *Options) (proximity.Scanner, proximity.Locker, proximity.ScreenState) {
	scanner, locker, screen := opts.Scanner, opts.Locker, opts.Screen

	if scanner == nil {
		if opts.Demo {
			scanner = bluetooth.NewMockScanner(bluetooth.MockOptions{
				Target:     cfg.Target.Address,
				TargetName: cfg.Target.Name,
				Neighbours: 4,
			})
		} else {
			scanner = bluetooth.NewBLEScanner()
		}
	}

	if locker == nil {
		if opts.Demo || opts.DryRun {
			locker = power.DryRunLocker{}
		} else {
			locker = power.NewLocker()
		}
	}

	if screen == nil {
		if opts.Demo {
			screen = power.Unlocked{}
		} else {
			screen = power.NewScreenState()
		}
	}

	return scanner, locker, screen
}

func saveSession(ctx context.Context, repo repository.Repository, cfg *config.Config, sessionID string) error {
	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Failed to detect actor", "error", err)
	}

	record := &domain.Session{
		ID:            sessionID,
		PID:           os.Getpid(),
		StartedAt:     time.Now().UTC(),
		StartedBy:     actor,
		Target:        cfg.Target.Address,
		HealthAddress: cfg.HealthAddress,
		LogFile:       cfg.Logging.File,
	}

	if err = repo.Save(ctx, record); err != nil {
		return fmt.Errorf("save session record: %w", err)
	}

	return nil
}
