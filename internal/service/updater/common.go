package updater

import (
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/proximity-lock/proximity-lock/internal/version"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

var errHashUnavailable = errors.New("hash function unavailable")

const (
	// VersionFilename stores the update description published next to the binaries.
	VersionFilename = "proximity-lock-version.yaml"

	// MarkerFilename marks that the updater is running right now to avoid parallel execution.
	MarkerFilename = "proximity-lock-update-marker.bin"

	// DefaultFileMode is used when producing artifacts for distribution.
	DefaultFileMode os.FileMode = 0o755

	// DefaultChecksumFunction is used to calculate update file hashes.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512

	// baseExecutable is the binary name without platform suffix.
	baseExecutable = "proximity-lock"

	// markerLifetime is the period after which a stale update marker is ignored.
	markerLifetime = 5 * time.Minute

	// defaultMapCapacity is the default initial capacity for maps and slices.
	defaultMapCapacity = 16
)

// Description contains metadata about a published release.
type Description struct {
	// VersionNumber is the semantic version of this release.
	VersionNumber string `yaml:"version"`
	// Files maps artifact names to their base64-encoded checksums.
	Files map[string]string `yaml:"files"`
}

// NewDescription produces a Description initialized with defaults.
func NewDescription() *Description {
	return &Description{
		VersionNumber: version.Short(),
		Files:         make(map[string]string, defaultMapCapacity),
	}
}

// Checksum returns the decoded checksum of an artifact.
func (d *Description) Checksum(name string) ([]byte, error) {
	encoded, ok := d.Files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errNoChecksum)
	}

	checksum, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode checksum of %s: %w", name, err)
	}

	return checksum, nil
}

// AssetName returns the published binary name for a platform, e.g. proximity-lock-linux-amd64.
func AssetName(goos, goarch string) string {
	name := baseExecutable + "-" + goos + "-" + goarch
	if goos == "windows" {
		name += ".exe"
	}

	return name
}

// CurrentAssetName returns the published binary name for this platform.
func CurrentAssetName() string {
	return AssetName(runtime.GOOS, runtime.GOARCH)
}

// GetFileChecksum returns checksum bytes for a file using DefaultChecksumFunction.
func GetFileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return checksum(contents)
}

func checksum(contents []byte) ([]byte, error) {
	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// acquireMarker creates the update marker in dir. A marker older than markerLifetime
// is treated as left behind by a crashed run and replaced.
func acquireMarker(dir string, now time.Time) (func(), error) {
	path := filepath.Join(dir, MarkerFilename)

	if info, err := os.Stat(path); err == nil && now.Sub(info.ModTime()) <= markerLifetime {
		return nil, errUpdaterAlreadyRunning
	}

	marker, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("create update marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		return nil, fmt.Errorf("close update marker: %w", err)
	}

	return func() {
		_ = os.Remove(path)
	}, nil
}
