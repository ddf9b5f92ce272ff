package power

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/proximity-lock/proximity-lock/internal/logger"
)

// ErrUnsupportedOS indicates the current OS is not supported.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// execRunner runs commands with os/exec.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}

	return out, nil
}

// command is a single program invocation.
type command struct {
	name string
	args []string
}

func (c command) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

// Locker locks the host session:
// - macOS:   require the password immediately, then sleep the display (`pmset displaysleepnow`)
// - Linux:   `loginctl lock-session`, falling back to `xdg-screensaver lock`
// - Windows: `rundll32.exe user32.dll,LockWorkStation`.
type Locker struct {
	goos string
	run  Runner
}

// NewLocker creates a locker for the running OS.
func NewLocker() *Locker {
	return &Locker{goos: runtime.GOOS, run: execRunner}
}

// Lock locks the session and returns a description of what was run.
func (l *Locker) Lock(ctx context.Context) (string, error) {
	switch l.goos {
	case "darwin":
		return l.runAll(ctx,
			command{"defaults", []string{"write", "com.apple.screensaver", "askForPassword", "-int", "1"}},
			command{"defaults", []string{"write", "com.apple.screensaver", "askForPasswordDelay", "-int", "0"}},
			command{"pmset", []string{"displaysleepnow"}},
		)
	case "linux":
		message, err := l.runAll(ctx, command{"loginctl", []string{"lock-session"}})
		if err == nil {
			return message, nil
		}

		logger.WarnKV(ctx, "loginctl lock failed, trying xdg-screensaver", "error", err)

		return l.runAll(ctx, command{"xdg-screensaver", []string{"lock"}})
	case "windows":
		return l.runAll(ctx, command{"rundll32.exe", []string{"user32.dll,LockWorkStation"}})
	default:
		return "", fmt.Errorf("lock screen on %s: %w", l.goos, ErrUnsupportedOS)
	}
}

func (l *Locker) runAll(ctx context.Context, commands ...command) (string, error) {
	ran := make([]string, 0, len(commands))

	for _, c := range commands {
		if _, err := l.run(ctx, c.name, c.args...); err != nil {
			return strings.Join(ran, "; "), fmt.Errorf("lock screen: %w", err)
		}

		ran = append(ran, c.String())
	}

	return "ran " + strings.Join(ran, "; "), nil
}

// DryRunLocker only logs. It is used to try thresholds without being locked out.
type DryRunLocker struct{}

// Lock logs the would-be lock.
func (DryRunLocker) Lock(ctx context.Context) (string, error) {
	logger.Warn(ctx, "Dry run: the host would be locked now")

	return "dry run, host not locked", nil
}
