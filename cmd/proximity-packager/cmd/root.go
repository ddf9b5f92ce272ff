package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/proximity-lock/proximity-lock/internal/service/packager"
	"github.com/proximity-lock/proximity-lock/internal/version"
)

var (
	// releaseVersion overrides the version written to the manifest.
	releaseVersion string

	// rootCmd represents the base command for preparing update metadata.
	rootCmd = &cobra.Command{
		Use:   "proximity-packager [dist-folder] [update-folder]",
		Short: "Prepare update metadata for distribution",
		Long: `Hashes every proximity-lock-<os>-<arch> binary in the dist folder and writes the
release manifest and a configuration template pointing at the update folder.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				DistDir: args[0],
				Version: releaseVersion,
			}

			if len(args) > 1 {
				options.UpdateFolder = args[1]
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the proximity-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVar(&releaseVersion, "release", "", "release version, defaults to this build's version")
}
