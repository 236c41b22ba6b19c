package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/yale-alarm/internal/service/watcher"
)

var (
	// watchInterval overrides the polling interval from the configuration.
	watchInterval time.Duration
	// stateFile overrides the state file from the configuration.
	stateFile string

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Poll the panel and publish every state change.",
		Long: `Background service that polls the alarm panel and publishes state changes.

The panel is polled at the interval from the configuration file (30 seconds
by default). Every change of the arming state is published as retained JSON
to <topic>/state on the configured MQTT broker, or logged when no broker is
configured. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			return watcher.Run(ctx, &watcher.Options{
				ConfigPath:   configPath,
				PollInterval: watchInterval,
				StateFile:    stateFile,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0, "polling interval, overrides the configuration")
	watchCmd.Flags().StringVar(&stateFile, "state-file", "", "file keeping the last published state, overrides the configuration")
	rootCmd.AddCommand(watchCmd)
}
