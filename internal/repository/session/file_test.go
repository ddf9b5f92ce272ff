package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/proximity-lock/proximity-lock/internal/domain/session"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.yaml"))
	s, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)

	require.NoError(t, repo.Remove(context.Background()))
}

// TestFileRepository_SaveLoadRemove ensures Save followed by Load returns an equal session.
func TestFileRepository_SaveLoadRemove(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "session.yaml")
	repo := NewFileRepository(file)

	want := &domain.Session{
		ID:        "0b6f3f5e-8a55-4c38-9d55-43a1f7e6c0de",
		PID:       4242,
		StartedAt: time.Now().UTC().Truncate(time.Second),
		StartedBy: &domain.Actor{
			Hostname: "workstation",
			Username: "jdoe",
		},
		Target:        "AA:BB:CC:DD:EE:FF",
		HealthAddress: "127.0.0.1:47811",
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.PID, got.PID)
	require.True(t, want.StartedAt.Equal(got.StartedAt))
	require.Equal(t, want.StartedBy, got.StartedBy)
	require.Equal(t, want.Target, got.Target)

	require.NoError(t, repo.Remove(context.Background()))

	_, err = os.Stat(file)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFileRepository_Corrupt rejects records without a usable pid.
func TestFileRepository_Corrupt(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(file, []byte("id: abc\npid: 0\n"), 0o600))

	_, err := NewFileRepository(file).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
