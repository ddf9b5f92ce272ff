package updater

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// release serves a manifest and the platform artifact.
type release struct {
	version  string
	artifact []byte
	// checksumOf is hashed into the manifest; defaults to artifact.
	checksumOf []byte
	downloads  atomic.Int32
}

func (r *release) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/releases/"+VersionFilename, func(w http.ResponseWriter, _ *http.Request) {
		source := r.checksumOf
		if source == nil {
			source = r.artifact
		}

		sum, err := checksum(source)
		require.NoError(t, err)

		desc := NewDescription()
		desc.VersionNumber = r.version
		desc.Files[CurrentAssetName()] = base64.StdEncoding.EncodeToString(sum)

		contents, err := yaml.Marshal(desc)
		require.NoError(t, err)

		_, _ = w.Write(contents)
	})

	mux.HandleFunc("/releases/"+CurrentAssetName(), func(w http.ResponseWriter, _ *http.Request) {
		r.downloads.Add(1)
		_, _ = w.Write(r.artifact)
	})

	return mux
}

// installed creates a fake installed binary.
func installed(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	executable := filepath.Join(dir, CurrentAssetName())
	require.NoError(t, os.WriteFile(executable, []byte("old binary"), 0o755))

	return dir, executable
}

func options(t *testing.T, serverURL, dir, executable, current string) *Options {
	t.Helper()

	return &Options{
		ConfigPath:     filepath.Join(dir, "missing.yaml"),
		UpdateFolder:   serverURL + "/releases/",
		Executable:     executable,
		CurrentVersion: current,
		MarkerDir:      dir,
	}
}

// TestRun_AppliesNewerRelease replaces the binary with a newer verified artifact.
func TestRun_AppliesNewerRelease(t *testing.T) {
	t.Parallel()

	rel := &release{version: "1.1.0", artifact: []byte("new binary")}
	server := httptest.NewServer(rel.handler(t))
	t.Cleanup(server.Close)

	dir, executable := installed(t)

	result, err := Run(context.Background(), options(t, server.URL, dir, executable, "1.0.0"))
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.Equal(t, "1.0.0", result.From)
	require.Equal(t, "1.1.0", result.To)

	contents, err := os.ReadFile(executable)
	require.NoError(t, err)
	require.Equal(t, "new binary", string(contents))

	_, err = os.Stat(filepath.Join(dir, MarkerFilename))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRun_UpToDate skips the download when the published version is not newer.
func TestRun_UpToDate(t *testing.T) {
	t.Parallel()

	rel := &release{version: "1.0.0", artifact: []byte("same binary")}
	server := httptest.NewServer(rel.handler(t))
	t.Cleanup(server.Close)

	dir, executable := installed(t)

	result, err := Run(context.Background(), options(t, server.URL, dir, executable, "v1.0.0"))
	require.NoError(t, err)
	require.False(t, result.Applied)
	require.Zero(t, rel.downloads.Load())

	opts := options(t, server.URL, dir, executable, "v1.0.0")
	opts.Force = true

	result, err = Run(context.Background(), opts)
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.EqualValues(t, 1, rel.downloads.Load())
}

// TestRun_ChecksumMismatch keeps the installed binary when the artifact is corrupt.
func TestRun_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	rel := &release{version: "2.0.0", artifact: []byte("tampered"), checksumOf: []byte("genuine")}
	server := httptest.NewServer(rel.handler(t))
	t.Cleanup(server.Close)

	dir, executable := installed(t)

	_, err := Run(context.Background(), options(t, server.URL, dir, executable, "1.0.0"))
	require.ErrorIs(t, err, errChecksumMismatch)

	contents, err := os.ReadFile(executable)
	require.NoError(t, err)
	require.Equal(t, "old binary", string(contents))
}

// TestRun_MissingManifest reports HTTP failures.
func TestRun_MissingManifest(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	dir, executable := installed(t)

	_, err := Run(context.Background(), options(t, server.URL, dir, executable, "1.0.0"))
	require.ErrorIs(t, err, errBadHTTPStatus)
}

// TestRun_RequiresUpdateFolder fails without a configured folder.
func TestRun_RequiresUpdateFolder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Run(context.Background(), &Options{
		ConfigPath: filepath.Join(dir, "missing.yaml"),
		MarkerDir:  dir,
	})
	require.ErrorIs(t, err, errNoUpdateFolder)
}

// TestAcquireMarker prevents concurrent runs and replaces stale markers.
func TestAcquireMarker(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Now()

	release, err := acquireMarker(dir, now)
	require.NoError(t, err)

	_, err = acquireMarker(dir, now)
	require.ErrorIs(t, err, errUpdaterAlreadyRunning)

	stale, err := acquireMarker(dir, now.Add(markerLifetime+time.Minute))
	require.NoError(t, err)

	stale()
	release()

	_, err = os.Stat(filepath.Join(dir, MarkerFilename))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestAssetName appends the platform and the Windows extension.
func TestAssetName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "proximity-lock-linux-arm64", AssetName("linux", "arm64"))
	require.Equal(t, "proximity-lock-windows-amd64.exe", AssetName("windows", "amd64"))
}
