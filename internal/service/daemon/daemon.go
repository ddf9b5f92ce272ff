package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/proximity-lock/proximity-lock/internal/config"
	domain "github.com/proximity-lock/proximity-lock/internal/domain/session"
	"github.com/proximity-lock/proximity-lock/internal/logger"
	repository "github.com/proximity-lock/proximity-lock/internal/repository/session"
)

var (
	// ErrAlreadyRunning indicates that a background monitor is already running.
	ErrAlreadyRunning = errors.New("monitor is already running")
	// ErrNotRunning indicates that no background monitor is running.
	ErrNotRunning = errors.New("monitor is not running")
	// ErrStartFailed indicates that the spawned monitor exited or never reported in.
	ErrStartFailed = errors.New("monitor failed to start")
)

// Options controls the daemon commands.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Address overrides the configured target address of a started monitor.
	Address string
	// Verbose starts the monitor with debug logs.
	Verbose bool
	// JSON prints the status as JSON.
	JSON bool
	// Executable is the binary to spawn; defaults to the running one.
	Executable string
	// Output receives the status report; defaults to stdout.
	Output io.Writer
}

// Start spawns a detached monitor and waits until it has published its session record.
//
//nolint:funlen // Sequential startup handshake.
func Start(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "daemon")

	// Load settings from configuration file.
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	repo := repository.NewFileRepository(cfg.SessionPath())

	current, err := activeSession(ctx, repo)
	if err != nil {
		return err
	}

	if current != nil {
		return fmt.Errorf("%w: pid %d, session %s", ErrAlreadyRunning, current.PID, current.ID)
	}

	executable := opts.Executable
	if executable == "" {
		if executable, err = os.Executable(); err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
	}

	// The monitor must outlive this command, so it is not bound to ctx.
	//nolint:gosec,noctx // The executable is this binary.
	cmd := exec.Command(executable, monitorArgs(opts)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	detach(cmd)

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("spawn monitor: %w", err)
	}

	pid := cmd.Process.Pid
	exited := make(chan error, 1)

	go func() {
		exited <- cmd.Wait()
	}()

	logger.InfoKV(ctx, "Monitor spawned, waiting for session record", "pid", pid)

	record, err := waitForSession(ctx, repo, pid, exited, cfg.Timeout)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Monitor started",
		"pid", record.PID,
		"session", record.ID,
		"target", record.Target,
		"log_file", record.LogFile,
	)

	return nil
}

// Stop terminates the background monitor and removes its session record.
func Stop(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "daemon")

	// Load settings from configuration file.
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	repo := repository.NewFileRepository(cfg.SessionPath())

	current, err := activeSession(ctx, repo)
	if err != nil {
		return err
	}

	if current == nil {
		return ErrNotRunning
	}

	logger.InfoKV(ctx, "Stopping monitor", "pid", current.PID, "session", current.ID)

	if err = terminate(ctx, current.PID, cfg.Timeout); err != nil {
		return err
	}

	// A monitor killed before its cleanup leaves the record behind.
	if err = repo.Remove(ctx); err != nil {
		return fmt.Errorf("remove session record: %w", err)
	}

	logger.Info(ctx, "Monitor stopped")

	return nil
}

// Restart stops the background monitor, if any, and starts a new one.
func Restart(ctx context.Context, opts *Options) error {
	if err := Stop(ctx, opts); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}

	return Start(ctx, opts)
}

func monitorArgs(opts *Options) []string {
	args := []string{"monitor", "--daemon"}

	if opts.ConfigPath != "" {
		args = append(args, "--config", opts.ConfigPath)
	}

	if opts.Verbose {
		args = append(args, "--verbose")
	}

	if opts.Address != "" {
		args = append(args, opts.Address)
	}

	return args
}

// activeSession returns the recorded session if its process is alive.
// A record left behind by a dead process is removed.
func activeSession(ctx context.Context, repo repository.Repository) (*domain.Session, error) {
	record, err := repo.Load(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("load session record: %w", err)
	}

	alive, err := processAlive(record.PID)
	if err != nil {
		return nil, err
	}

	if alive {
		return record, nil
	}

	logger.WarnKV(ctx, "Removing stale session record", "pid", record.PID, "session", record.ID)

	if err = repo.Remove(ctx); err != nil {
		return nil, fmt.Errorf("remove stale session record: %w", err)
	}

	return nil, nil
}

// waitForSession polls the record until the spawned pid shows up in it.
func waitForSession(
	ctx context.Context,
	repo repository.Repository,
	pid int,
	exited <-chan error,
	timeout time.Duration,
) (*domain.Session, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(processPollInterval)
	defer ticker.Stop()

	for {
		record, err := repo.Load(ctx)
		if err == nil && record.PID == pid {
			return record, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-exited:
			return nil, fmt.Errorf("%w: exited early: %v", ErrStartFailed, err) //nolint:errorlint // Exit status is informational.
		case <-deadline.C:
			return nil, fmt.Errorf("%w: no session record after %s", ErrStartFailed, timeout)
		case <-ticker.C:
		}
	}
}
