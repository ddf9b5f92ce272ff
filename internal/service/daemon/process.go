package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/mitchellh/go-ps"
)

// processPollInterval is how often the process table is checked while waiting.
const processPollInterval = 100 * time.Millisecond

// errProcessTable indicates that the process table could not be read.
var errProcessTable = errors.New("read process table")

// processAlive reports whether a process with the given pid exists.
func processAlive(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errProcessTable, err)
	}

	return process != nil, nil
}

// terminate asks the process to exit and kills it when it does not within timeout.
// Platforms without SIGTERM get killed right away.
func terminate(ctx context.Context, pid int, timeout time.Duration) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}

	if err = process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}

		return kill(process)
	}

	exited, err := waitExit(ctx, pid, timeout)
	if err != nil || exited {
		return err
	}

	return kill(process)
}

func kill(process *os.Process) error {
	if err := process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %d: %w", process.Pid, err)
	}

	return nil
}

// waitExit polls the process table until pid disappears or timeout elapses.
func waitExit(ctx context.Context, pid int, timeout time.Duration) (bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(processPollInterval)
	defer ticker.Stop()

	for {
		alive, err := processAlive(pid)
		if err != nil {
			return false, err
		}

		if !alive {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}
