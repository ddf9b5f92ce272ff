package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/proximity-lock/proximity-lock/internal/config"
	"github.com/proximity-lock/proximity-lock/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string

	// rootCmd represents the base command; every action is a subcommand.
	rootCmd = &cobra.Command{
		Use:   "proximity-lock",
		Short: "Lock this computer when your phone or beacon walks away.",
		Long: `Watches the Bluetooth LE advertisements of one device and locks the screen
when the estimated distance to it exceeds a threshold.

Readings are averaged over a sliding window and converted to meters with a
log-distance path-loss model. After you unlock, alerts are suppressed for a
grace period; repeated locks within a short window pause alerting altogether.
A watchdog restarts a silent scanner with exponential backoff.

Run "proximity-lock scan" to find your device, then "proximity-lock monitor <address>"
in the foreground or "proximity-lock start <address>" in the background.`,
		SilenceUsage: true,
	}
)

// Execute runs the proximity-lock CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is canceled on SIGTERM or SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// optionalAddress returns the first argument, if any.
func optionalAddress(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return ""
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
}
