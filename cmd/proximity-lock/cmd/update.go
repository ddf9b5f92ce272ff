package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/proximity-lock/proximity-lock/internal/service/updater"
)

var (
	// updateOptions collects the update flags.
	updateOptions updater.Options

	// updateCmd replaces this binary with the latest published release.
	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Download and apply the latest release.",
		Long: `Fetches the release manifest from the update folder, and when it publishes a
newer version, downloads the binary for this platform, verifies its SHA-512
checksum and swaps it in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			options := updateOptions
			options.ConfigPath = configPath

			result, err := updater.Run(ctx, &options)
			if err != nil {
				return err
			}

			if result.Applied {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s -> %s\n", result.From, result.To)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Already up to date (%s)\n", result.From)
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	updateCmd.Flags().StringVar(&updateOptions.UpdateFolder, "url", "", "update folder URL, overrides update_folder")
	updateCmd.Flags().BoolVar(&updateOptions.Force, "force", false, "reinstall even if not newer")
	updateCmd.Flags().BoolVar(&updateOptions.RestartMonitor, "restart", false, "restart the background monitor around the update")

	rootCmd.AddCommand(updateCmd)
}
