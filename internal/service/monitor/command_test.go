package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proximity-lock/proximity-lock/internal/eventlog"
	"github.com/proximity-lock/proximity-lock/internal/proximity"
	repository "github.com/proximity-lock/proximity-lock/internal/repository/session"
)

// writeConfig stores a minimal configuration in a temporary directory.
func writeConfig(t *testing.T, body string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "proximity-lock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return dir, path
}

// TestRun_RequiresTarget rejects sessions without a device address.
func TestRun_RequiresTarget(t *testing.T) {
	t.Parallel()

	_, path := writeConfig(t, "logging:\n  level: info\n")

	err := Run(context.Background(), &Options{ConfigPath: path})
	require.ErrorIs(t, err, ErrNoTarget)
}

// TestRun_RejectsBadAddress validates the command line address.
func TestRun_RejectsBadAddress(t *testing.T) {
	t.Parallel()

	_, path := writeConfig(t, "")

	err := Run(context.Background(), &Options{ConfigPath: path, Address: "not-a-device"})
	require.Error(t, err)
}

// TestRun_DemoWritesJournal runs the demo device and reads the stamped journal back.
func TestRun_DemoWritesJournal(t *testing.T) {
	t.Parallel()

	dir, path := writeConfig(t, "")
	journal := filepath.Join(dir, "events.cbor")

	require.NoError(t, os.WriteFile(path, []byte("health_addr: \"\"\njournal_file: "+journal+"\n"), 0o600))

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := Run(ctx, &Options{
			ConfigPath: path,
			Demo:       true,
			SessionID:  "demo-session",
		})
		require.NoError(t, err)
	})

	reader, err := eventlog.NewReader(journal, eventlog.Filter{
		Kinds: []proximity.EventKind{proximity.EventSampleProcessed},
	})
	require.NoError(t, err)

	defer func() {
		require.NoError(t, reader.Close())
	}()

	events, err := reader.All()
	require.NoError(t, err)
	require.NotEmpty(t, events)

	for _, event := range events {
		require.Equal(t, "demo-session", event.Session)
		require.Equal(t, DemoTarget, event.Address)
		require.NotNil(t, event.Distance)
	}
}

// TestRun_DaemonSessionRecord publishes the session record while running and removes it on exit.
func TestRun_DaemonSessionRecord(t *testing.T) {
	t.Parallel()

	dir, path := writeConfig(t, "")
	sessionFile := filepath.Join(dir, "session.yaml")
	logFile := filepath.Join(dir, "monitor.log")

	body := "target:\n  address: aa:bb:cc:dd:ee:ff\n" +
		"health_addr: \"\"\n" +
		"session_file: " + sessionFile + "\n" +
		"logging:\n  file: " + logFile + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	repo := repository.NewFileRepository(sessionFile)

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() {
			done <- Run(ctx, &Options{
				ConfigPath: path,
				Daemon:     true,
				DryRun:     true,
				SessionID:  "daemon-session",
				Scanner:    idleScanner{},
				Screen:     unlockedScreen{},
			})
		}()

		time.Sleep(time.Second)
		synctest.Wait()

		record, err := repo.Load(context.Background())
		require.NoError(t, err)
		require.Equal(t, "daemon-session", record.ID)
		require.Equal(t, os.Getpid(), record.PID)
		require.Equal(t, "AA:BB:CC:DD:EE:FF", record.Target)
		require.Equal(t, logFile, record.LogFile)

		cancel()
		require.NoError(t, <-done)
	})

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, repository.ErrNotFound)

	logs, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(logs), "Monitoring device")
}

// idleScanner never reports anything.
type idleScanner struct{}

func (idleScanner) Start(context.Context, func(proximity.Advertisement)) error { return nil }
func (idleScanner) Restart(context.Context) error                           { return nil }
func (idleScanner) Pause(context.Context) error                             { return nil }
func (idleScanner) Resume(context.Context) error                            { return nil }
func (idleScanner) Stop() error                                             { return nil }

// unlockedScreen always reports an unlocked screen.
type unlockedScreen struct{}

func (unlockedScreen) IsLocked(context.Context) (bool, error) { return false, nil }
