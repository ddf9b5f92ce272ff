package cmd

import (
	"github.com/spf13/cobra"

	"github.com/proximity-lock/proximity-lock/internal/service/discover"
)

var (
	// scanOptions collects the scan flags.
	scanOptions discover.Options

	// scanCmd lists nearby devices once.
	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "List nearby Bluetooth LE devices.",
		Long: `Scans for the given duration and prints every device heard, strongest first,
with its averaged RSSI and the distance estimated from the configured path-loss
parameters. The configured target is marked with an asterisk.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			options := scanOptions
			options.ConfigPath = configPath

			return discover.Run(ctx, &options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	scanCmd.Flags().DurationVarP(&scanOptions.Duration, "duration", "d", discover.DefaultDuration, "scan duration, 5s to 60s")
	scanCmd.Flags().BoolVar(&scanOptions.Demo, "demo", false, "scan synthetic devices instead of Bluetooth")

	rootCmd.AddCommand(scanCmd)
}
