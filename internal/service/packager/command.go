package packager

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/proximity-lock/proximity-lock/internal/config"
	"github.com/proximity-lock/proximity-lock/internal/logger"
	"github.com/proximity-lock/proximity-lock/internal/service/updater"
	"github.com/proximity-lock/proximity-lock/internal/version"
)

var (
	// errNoArtifacts indicates that the dist folder holds no platform binaries.
	errNoArtifacts = errors.New("no proximity-lock binaries found")
	// errInvalidVersion indicates a release version that is not semver.
	errInvalidVersion = errors.New("release version is not a semantic version")
)

// artifactPrefix is shared by every published platform binary.
const artifactPrefix = "proximity-lock-"

// Options contains inputs for the packager entry point.
type Options struct {
	// DistDir holds the built platform binaries; the manifest is written there.
	DistDir string
	// UpdateFolder is the URL where the release will be uploaded.
	UpdateFolder string
	// Version overrides the release version; defaults to this build's version.
	Version string
}

// packager prepares update metadata (manifest) for distribution.
type packager struct {
	// dir is the dist folder.
	dir string
	// cfg is the configuration template shipped with the release.
	cfg *config.Config
	// desc contains the update manifest.
	desc *updater.Description
}

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "packager")

	cfg := config.Default()
	cfg.UpdateFolder = opts.UpdateFolder

	if err := config.Validate(cfg); err != nil {
		return err
	}

	desc := updater.NewDescription()
	if opts.Version != "" {
		desc.VersionNumber = opts.Version
	}

	if version.Canonical(desc.VersionNumber) == "" {
		return fmt.Errorf("%w: %q", errInvalidVersion, desc.VersionNumber)
	}

	pkg := &packager{dir: opts.DistDir, cfg: cfg, desc: desc}

	if err := pkg.Run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return nil
}

// Run populates and writes the update description (manifest) and the configuration template.
func (p *packager) Run(ctx context.Context) error {
	logger.Info(ctx, "Preparing update description")

	if err := p.fillDescription(); err != nil {
		return err
	}

	manifest := filepath.Join(p.dir, updater.VersionFilename)
	logger.InfoKV(ctx, "Saving update description", "path", manifest, "version", p.desc.VersionNumber)

	if err := p.saveDescription(manifest); err != nil {
		return err
	}

	if err := config.Save(filepath.Join(p.dir, config.DefaultConfigFilename), p.cfg); err != nil {
		return fmt.Errorf("save configuration template: %w", err)
	}

	p.printNextSteps(ctx)

	return nil
}

// fillDescription hashes every platform binary in the dist folder.
func (p *packager) fillDescription() error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("read dist folder: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, artifactPrefix) || filepath.Ext(name) == ".yaml" {
			continue
		}

		checksum, err := updater.GetFileChecksum(filepath.Join(p.dir, name))
		if err != nil {
			return err
		}

		p.desc.Files[name] = base64.StdEncoding.EncodeToString(checksum)
	}

	if len(p.desc.Files) == 0 {
		return fmt.Errorf("%w in %s", errNoArtifacts, p.dir)
	}

	return nil
}

// saveDescription writes the manifest.
func (p *packager) saveDescription(path string) error {
	contents, err := yaml.Marshal(p.desc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, contents, updater.DefaultFileMode)
}

// printNextSteps logs human-readable guidance for next actions with the created files.
func (p *packager) printNextSteps(ctx context.Context) {
	files := make([]string, 0, len(p.desc.Files)+1)
	for fileName := range p.desc.Files {
		files = append(files, fileName)
	}

	files = append(files, updater.VersionFilename)
	slices.Sort(files)

	var builder strings.Builder

	builder.WriteString("Upload the following files to ")

	if p.cfg.UpdateFolder != "" {
		builder.WriteString(p.cfg.UpdateFolder)
	} else {
		builder.WriteString("the update folder")
	}

	builder.WriteString(":\n")
	builder.WriteString(strings.Join(files, ",\n"))
	builder.WriteString("\n\nShip ")
	builder.WriteString(config.DefaultConfigFilename)
	builder.WriteString(" with the binaries, then run: proximity-lock update")

	logger.Info(ctx, builder.String())
}
