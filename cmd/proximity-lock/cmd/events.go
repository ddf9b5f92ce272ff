package cmd

import (
	"github.com/spf13/cobra"

	"github.com/proximity-lock/proximity-lock/internal/service/events"
)

var (
	// eventsOptions collects the events flags.
	eventsOptions events.Options

	// eventsCmd prints the event journal.
	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "Print the event journal.",
		Long: `Prints the events recorded in the journal file configured by journal_file:
alerts, grace windows, lock loops, scanner restarts and unlocks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			options := eventsOptions
			options.ConfigPath = configPath
			options.Output = cmd.OutOrStdout()

			return events.Run(ctx, &options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	eventsCmd.Flags().StringVarP(&eventsOptions.File, "file", "f", "", "journal file, overrides journal_file")
	eventsCmd.Flags().StringSliceVarP(&eventsOptions.Kinds, "kind", "k", nil, "only print these event kinds")
	eventsCmd.Flags().StringVar(&eventsOptions.Session, "session", "", "only print events of this session")
	eventsCmd.Flags().DurationVar(&eventsOptions.Since, "since", 0, "only print events newer than this")
	eventsCmd.Flags().BoolVar(&eventsOptions.JSON, "json", false, "print one JSON object per line")

	rootCmd.AddCommand(eventsCmd)
}
