package cmd

import (
	"github.com/spf13/cobra"

	"github.com/proximity-lock/proximity-lock/internal/service/daemon"
)

var (
	// daemonOptions collects the flags shared by the daemon commands.
	daemonOptions daemon.Options

	// startCmd spawns a background monitor.
	startCmd = &cobra.Command{
		Use:   "start [device-address]",
		Short: "Start the monitor in the background.",
		Long: `Spawns "proximity-lock monitor --daemon" detached from the terminal and waits
until it has written its session record. The background monitor logs to the
configured log file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return daemon.Start(ctx, daemonCommandOptions(args))
		},
	}

	// stopCmd terminates the background monitor.
	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the background monitor.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return daemon.Stop(ctx, daemonCommandOptions(args))
		},
	}

	// restartCmd replaces the background monitor.
	restartCmd = &cobra.Command{
		Use:   "restart [device-address]",
		Short: "Restart the background monitor.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return daemon.Restart(ctx, daemonCommandOptions(args))
		},
	}

	// statusCmd reports on the background monitor.
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the state of the background monitor.",
		Long: `Prints the session record of the background monitor and the health of its
scanner as reported by the monitor's gRPC health endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			options := daemonCommandOptions(args)
			options.Output = cmd.OutOrStdout()

			return daemon.Status(ctx, options)
		},
	}
)

func daemonCommandOptions(args []string) *daemon.Options {
	options := daemonOptions
	options.ConfigPath = configPath
	options.Address = optionalAddress(args)

	return &options
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	startCmd.Flags().BoolVarP(&daemonOptions.Verbose, "verbose", "v", false, "log every sample")
	restartCmd.Flags().BoolVarP(&daemonOptions.Verbose, "verbose", "v", false, "log every sample")
	statusCmd.Flags().BoolVar(&daemonOptions.JSON, "json", false, "print the status as JSON")

	rootCmd.AddCommand(startCmd, stopCmd, restartCmd, statusCmd)
}
