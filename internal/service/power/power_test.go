package power

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var errCommand = errors.New("exit status 1")

// recorder is a Runner that records invocations and fails on chosen programs.
type recorder struct {
	calls  []string
	fail   map[string]bool
	output string
}

func (r *recorder) run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))

	if r.fail[name] {
		return nil, errCommand
	}

	return []byte(r.output), nil
}

// TestLocker_Commands checks the commands run on each OS.
func TestLocker_Commands(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"darwin": {
			"defaults write com.apple.screensaver askForPassword -int 1",
			"defaults write com.apple.screensaver askForPasswordDelay -int 0",
			"pmset displaysleepnow",
		},
		"linux":   {"loginctl lock-session"},
		"windows": {"rundll32.exe user32.dll,LockWorkStation"},
	}

	for goos, want := range cases {
		rec := new(recorder)
		l := &Locker{goos: goos, run: rec.run}

		message, err := l.Lock(context.Background())
		require.NoError(t, err, goos)
		require.Equal(t, want, rec.calls, goos)
		require.Contains(t, message, want[len(want)-1])
	}
}

// TestLocker_LinuxFallback checks the xdg-screensaver fallback.
func TestLocker_LinuxFallback(t *testing.T) {
	t.Parallel()

	rec := &recorder{fail: map[string]bool{"loginctl": true}}
	l := &Locker{goos: "linux", run: rec.run}

	message, err := l.Lock(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ran xdg-screensaver lock", message)

	rec = &recorder{fail: map[string]bool{"loginctl": true, "xdg-screensaver": true}}
	l = &Locker{goos: "linux", run: rec.run}

	_, err = l.Lock(context.Background())
	require.ErrorIs(t, err, errCommand)
}

// TestLocker_StopsOnFirstFailure checks that macOS does not sleep the display without a password.
func TestLocker_StopsOnFirstFailure(t *testing.T) {
	t.Parallel()

	rec := &recorder{fail: map[string]bool{"defaults": true}}
	l := &Locker{goos: "darwin", run: rec.run}

	_, err := l.Lock(context.Background())
	require.ErrorIs(t, err, errCommand)
	require.Len(t, rec.calls, 1)
}

func TestLocker_UnsupportedOS(t *testing.T) {
	t.Parallel()

	_, err := (&Locker{goos: "plan9"}).Lock(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedOS)

	_, err = (&ScreenState{goos: "plan9"}).IsLocked(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedOS)
}

func TestDryRunLocker(t *testing.T) {
	t.Parallel()

	message, err := DryRunLocker{}.Lock(context.Background())
	require.NoError(t, err)
	require.Contains(t, message, "dry run")
}

// TestScreenState_Parsing checks the lock detection on every OS.
func TestScreenState_Parsing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	darwinLocked := `+-o Root  <class IORegistryEntry>
    {
      "IOConsoleUsers" = ({"CGSSessionScreenIsLocked"=Yes,"kCGSSessionOnConsoleKey"=Yes})
    }`

	locked, err := (&ScreenState{goos: "darwin", run: (&recorder{output: darwinLocked}).run}).IsLocked(ctx)
	require.NoError(t, err)
	require.True(t, locked)

	locked, err = (&ScreenState{goos: "darwin", run: (&recorder{output: `"kCGSSessionOnConsoleKey"=Yes`}).run}).IsLocked(ctx)
	require.NoError(t, err)
	require.False(t, locked)

	rec := &recorder{output: "LockedHint=yes\n"}
	locked, err = (&ScreenState{goos: "linux", run: rec.run, session: "c2"}).IsLocked(ctx)
	require.NoError(t, err)
	require.True(t, locked)
	require.Equal(t, []string{"loginctl show-session c2 -p LockedHint"}, rec.calls)

	locked, err = (&ScreenState{goos: "linux", run: (&recorder{output: "LockedHint=no"}).run}).IsLocked(ctx)
	require.NoError(t, err)
	require.False(t, locked)

	_, err = (&ScreenState{goos: "linux", run: (&recorder{fail: map[string]bool{"loginctl": true}}).run}).IsLocked(ctx)
	require.ErrorIs(t, err, errCommand)

	lister := func(names ...string) ProcessLister {
		return func() ([]string, error) { return names, nil }
	}

	locked, err = (&ScreenState{goos: "windows", processes: lister("explorer.exe", "LogonUI.exe")}).IsLocked(ctx)
	require.NoError(t, err)
	require.True(t, locked)

	locked, err = (&ScreenState{goos: "windows", processes: lister("explorer.exe")}).IsLocked(ctx)
	require.NoError(t, err)
	require.False(t, locked)

	locked, err = Unlocked{}.IsLocked(ctx)
	require.NoError(t, err)
	require.False(t, locked)
}

// TestListProcesses runs the real process listing; the test binary itself must be in it.
func TestListProcesses(t *testing.T) {
	t.Parallel()

	names, err := listProcesses()
	require.NoError(t, err)
	require.NotEmpty(t, names)
}
