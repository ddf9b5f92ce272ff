package packager

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/proximity-lock/proximity-lock/internal/config"
	"github.com/proximity-lock/proximity-lock/internal/service/updater"
)

// TestRun_WritesManifest hashes platform binaries and skips unrelated files.
func TestRun_WritesManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	linux := filepath.Join(dir, updater.AssetName("linux", "amd64"))
	windows := filepath.Join(dir, updater.AssetName("windows", "amd64"))

	require.NoError(t, os.WriteFile(linux, []byte("linux build"), 0o755))
	require.NoError(t, os.WriteFile(windows, []byte("windows build"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o600))

	err := Run(context.Background(), &Options{
		DistDir:      dir,
		UpdateFolder: "https://updates.example.com/proximity-lock/",
		Version:      "1.4.0",
	})
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, updater.VersionFilename))
	require.NoError(t, err)

	var desc updater.Description
	require.NoError(t, yaml.Unmarshal(contents, &desc))
	require.Equal(t, "1.4.0", desc.VersionNumber)
	require.Len(t, desc.Files, 2)

	sum, err := updater.GetFileChecksum(linux)
	require.NoError(t, err)
	require.Equal(t, base64.StdEncoding.EncodeToString(sum), desc.Files[filepath.Base(linux)])

	cfg, err := config.Load(filepath.Join(dir, config.DefaultConfigFilename))
	require.NoError(t, err)
	require.Equal(t, "https://updates.example.com/proximity-lock/", cfg.UpdateFolder)
}

// TestRun_NoArtifacts fails on an empty dist folder.
func TestRun_NoArtifacts(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{DistDir: t.TempDir(), Version: "1.0.0"})
	require.ErrorIs(t, err, errNoArtifacts)
}

// TestRun_InvalidVersion rejects non-semver releases.
func TestRun_InvalidVersion(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{DistDir: t.TempDir(), Version: "latest"})
	require.ErrorIs(t, err, errInvalidVersion)
}
