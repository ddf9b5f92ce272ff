package power

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	ps "github.com/mitchellh/go-ps"
)

// windowsLockProcess runs while the Windows lock screen is shown.
const windowsLockProcess = "logonui.exe"

// ProcessLister returns the names of running executables.
type ProcessLister func() ([]string, error)

func listProcesses() ([]string, error) {
	processes, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	names := make([]string, 0, len(processes))
	for _, p := range processes {
		names = append(names, p.Executable())
	}

	return names, nil
}

// ScreenState reports whether the host session is locked:
// - macOS:   CGSSessionScreenIsLocked in the `ioreg -n Root -d1` session dictionary
// - Linux:   LockedHint of the logind session
// - Windows: a running LogonUI.exe.
type ScreenState struct {
	goos      string
	run       Runner
	processes ProcessLister
	session   string
}

// NewScreenState creates a query for the running OS.
func NewScreenState() *ScreenState {
	session := os.Getenv("XDG_SESSION_ID")
	if session == "" {
		session = "auto"
	}

	return &ScreenState{
		goos:      runtime.GOOS,
		run:       execRunner,
		processes: listProcesses,
		session:   session,
	}
}

// IsLocked reports whether the screen is locked.
func (s *ScreenState) IsLocked(ctx context.Context) (bool, error) {
	switch s.goos {
	case "darwin":
		out, err := s.run(ctx, "ioreg", "-n", "Root", "-d1")
		if err != nil {
			return false, err
		}

		return strings.Contains(string(out), `"CGSSessionScreenIsLocked"=Yes`), nil
	case "linux":
		out, err := s.run(ctx, "loginctl", "show-session", s.session, "-p", "LockedHint")
		if err != nil {
			return false, err
		}

		return strings.EqualFold(strings.TrimSpace(string(out)), "LockedHint=yes"), nil
	case "windows":
		names, err := s.processes()
		if err != nil {
			return false, err
		}

		for _, name := range names {
			if strings.EqualFold(name, windowsLockProcess) {
				return true, nil
			}
		}

		return false, nil
	default:
		return false, fmt.Errorf("query screen state on %s: %w", s.goos, ErrUnsupportedOS)
	}
}

// Unlocked always reports an unlocked screen. Used in demo mode.
type Unlocked struct{}

// IsLocked returns false.
func (Unlocked) IsLocked(context.Context) (bool, error) {
	return false, nil
}
