package cmd

import (
	"github.com/spf13/cobra"

	"github.com/proximity-lock/proximity-lock/internal/service/monitor"
)

var (
	// monitorOptions collects the monitor flags.
	monitorOptions monitor.Options

	// monitorCmd runs the proximity monitor in the foreground.
	monitorCmd = &cobra.Command{
		Use:   "monitor [device-address]",
		Short: "Monitor a device and lock when it leaves the range.",
		Long: `Runs the proximity monitor in the foreground until interrupted.

The device address is a MAC address, or the CoreBluetooth UUID on macOS. It can
be given as an argument or loaded from the configuration file.

--demo replaces the Bluetooth adapter with a synthetic beacon that walks away
and comes back every few minutes, and never locks the screen. --dry-run logs
the lock instead of performing it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			options := monitorOptions
			options.ConfigPath = configPath
			options.Address = optionalAddress(args)

			return monitor.Run(ctx, &options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	monitorCmd.Flags().BoolVar(&monitorOptions.Demo, "demo", false, "use a synthetic device instead of Bluetooth")
	monitorCmd.Flags().BoolVar(&monitorOptions.DryRun, "dry-run", false, "log locks instead of locking")
	monitorCmd.Flags().BoolVarP(&monitorOptions.Verbose, "verbose", "v", false, "log every sample")

	// Hidden daemon flag used by "start".
	monitorCmd.Flags().BoolVar(&monitorOptions.Daemon, "daemon", false, "run as a background monitor")

	err := monitorCmd.Flags().MarkHidden("daemon")
	if err != nil {
		panic(err)
	}

	rootCmd.AddCommand(monitorCmd)
}
