package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/proximity-lock/proximity-lock/internal/config"
	"github.com/proximity-lock/proximity-lock/internal/logger"
	"github.com/proximity-lock/proximity-lock/internal/service/daemon"
	"github.com/proximity-lock/proximity-lock/internal/version"
)

var (
	errUpdaterAlreadyRunning = errors.New("the updater is already running")
	errNoUpdateFolder        = errors.New("update folder is not configured")
	errEmptyDescription      = errors.New("update description is empty")
	errNoChecksum            = errors.New("checksum missing for file")
	errBadHTTPStatus         = errors.New("unexpected http status")
	errChecksumMismatch      = errors.New("downloaded file does not match its checksum")
)

// maxDownloadSize bounds a single downloaded artifact.
const maxDownloadSize = 256 << 20

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// UpdateFolder overrides the configured update folder URL.
	UpdateFolder string
	// Force reinstalls even when the published version is not newer.
	Force bool
	// RestartMonitor stops a background monitor before the swap and starts it afterwards.
	RestartMonitor bool
	// Executable is the binary to replace; defaults to the running one.
	Executable string
	// CurrentVersion is the installed version; defaults to this build's version.
	CurrentVersion string
	// MarkerDir holds the update marker; defaults to the system temp directory.
	MarkerDir string
	// HTTPClient downloads the release; defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Result describes what an update run did.
type Result struct {
	// From is the version that was installed before the run.
	From string
	// To is the published version.
	To string
	// Applied is true when the binary was replaced.
	Applied bool
}

// runner holds the state of a single update execution.
type runner struct {
	opts   *Options
	cfg    *config.Config
	folder *url.URL
	client *http.Client
}

// Run executes the updater lifecycle and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "updater")

	markerDir := opts.MarkerDir
	if markerDir == "" {
		markerDir = os.TempDir()
	}

	release, err := acquireMarker(markerDir, time.Now())
	if err != nil {
		return nil, err
	}

	defer release()

	u, err := newRunner(opts)
	if err != nil {
		return nil, err
	}

	result, err := u.Run(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Updater run failed", "error", err)
		return nil, err
	}

	logger.Info(ctx, "Updater completed")

	return result, nil
}

func newRunner(opts *Options) (*runner, error) {
	// Load settings from configuration file.
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	folder := cfg.UpdateFolder
	if opts.UpdateFolder != "" {
		folder = opts.UpdateFolder
	}

	if folder == "" {
		return nil, errNoUpdateFolder
	}

	parsed, err := url.ParseRequestURI(folder)
	if err != nil {
		return nil, fmt.Errorf("parse update folder: %w", err)
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &runner{opts: opts, cfg: cfg, folder: parsed, client: client}, nil
}

// Run executes the workflow for this runner instance:
// 1) Fetch the remote manifest.
// 2) Compare versions.
// 3) Download and verify the platform artifact.
// 4) Stop the background monitor if asked.
// 5) Apply the artifact and start the monitor again.
func (u *runner) Run(ctx context.Context) (*Result, error) {
	current := u.opts.CurrentVersion
	if current == "" {
		current = version.Short()
	}

	logger.Info(ctx, "Downloading the update description")

	description, err := u.fetchDescription(ctx)
	if err != nil {
		return nil, fmt.Errorf("download update description: %w", err)
	}

	result := &Result{From: current, To: description.VersionNumber}

	if !version.IsNewer(description.VersionNumber, current) && !u.opts.Force {
		logger.InfoKV(ctx, "Already up to date", "installed", current, "published", description.VersionNumber)
		return result, nil
	}

	logger.InfoKV(ctx, "Update available", "installed", current, "published", description.VersionNumber)

	asset := CurrentAssetName()

	expected, err := description.Checksum(asset)
	if err != nil {
		return nil, err
	}

	data, err := u.download(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", asset, err)
	}

	actual, err := checksum(data)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(actual, expected) {
		return nil, fmt.Errorf("%s: %w", asset, errChecksumMismatch)
	}

	restart, err := u.stopMonitor(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Applying update")

	if err = u.apply(data, expected); err != nil {
		return nil, fmt.Errorf("apply update: %w", err)
	}

	result.Applied = true

	if restart {
		logger.Info(ctx, "Starting monitor again")

		if err = daemon.Start(ctx, &daemon.Options{ConfigPath: u.opts.ConfigPath, Executable: u.opts.Executable}); err != nil {
			return result, fmt.Errorf("restart monitor: %w", err)
		}
	}

	return result, nil
}

// fetchDescription downloads and parses the remote update manifest.
func (u *runner) fetchDescription(ctx context.Context) (*Description, error) {
	data, err := u.download(ctx, VersionFilename)
	if err != nil {
		return nil, err
	}

	var desc Description
	if err = yaml.Unmarshal(data, &desc); err != nil {
		return nil, err
	}

	if desc.VersionNumber == "" || len(desc.Files) == 0 {
		return nil, errEmptyDescription
	}

	return &desc, nil
}

// download fetches a file from the update folder.
func (u *runner) download(ctx context.Context, fileName string) ([]byte, error) {
	target := *u.folder
	// Use path.Join to normalize duplicate slashes when composing the URL path.
	target.Path = path.Join(target.Path, fileName)
	finalURL := target.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", finalURL, response.Status, errBadHTTPStatus)
	}

	return io.ReadAll(io.LimitReader(response.Body, maxDownloadSize))
}

// stopMonitor stops the background monitor when asked to, reporting whether one was running.
func (u *runner) stopMonitor(ctx context.Context) (bool, error) {
	if !u.opts.RestartMonitor {
		return false, nil
	}

	err := daemon.Stop(ctx, &daemon.Options{ConfigPath: u.opts.ConfigPath})

	switch {
	case errors.Is(err, daemon.ErrNotRunning):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stop monitor: %w", err)
	default:
		return true, nil
	}
}

// apply swaps the binary using go-update with checksum validation.
func (u *runner) apply(data, sum []byte) error {
	options := goupdate.Options{
		TargetPath: u.opts.Executable,
		TargetMode: DefaultFileMode,
		Checksum:   sum,
		Hash:       DefaultChecksumFunction,
	}

	return goupdate.Apply(bytes.NewReader(data), options)
}
