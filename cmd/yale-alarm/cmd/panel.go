package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/yale-alarm/internal/service/panel"
	"github.com/oshokin/yale-alarm/yale"
)

var (
	// wait makes arm and disarm poll until the panel confirms the change.
	wait bool
	// waitTimeout bounds the confirmation polling.
	waitTimeout time.Duration
	// confirmPanic must be set to sound the alarm.
	confirmPanic bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the arming state of the panel.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return panel.Status(ctx, &panel.Options{ConfigPath: configPath, Output: cmd.OutOrStdout()})
		},
	}

	armCmd = &cobra.Command{
		Use:   "arm [full|partial]",
		Short: "Arm the panel, fully (away) by default or partially (home).",
		Args:  cobra.MaximumNArgs(1),
		ValidArgs: []string{
			"full", "partial",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := "full"
			if len(args) > 0 {
				mode = args[0]
			}

			state, ok := yale.ParseState(mode)
			if !ok || !state.IsArmed() {
				return fmt.Errorf("unknown arming mode %q, expected full or partial", mode)
			}

			return runSetState(cmd, state)
		},
	}

	disarmCmd = &cobra.Command{
		Use:   "disarm",
		Short: "Disarm the panel.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetState(cmd, yale.StateDisarmed)
		},
	}

	panicCmd = &cobra.Command{
		Use:   "panic",
		Short: "Sound the alarm immediately.",
		Long:  "Sound the alarm immediately. Requires --confirm so it is never triggered by accident.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return panel.Panic(ctx, &panel.Options{
				ConfigPath: configPath,
				Output:     cmd.OutOrStdout(),
				Confirm:    confirmPanic,
			})
		},
	}
)

func runSetState(cmd *cobra.Command, state yale.AlarmState) error {
	ctx, stop := signalContext()
	defer stop()

	return panel.SetState(ctx, &panel.Options{
		ConfigPath:   configPath,
		Output:       cmd.OutOrStdout(),
		DesiredState: state,
		Wait:         wait,
		WaitTimeout:  waitTimeout,
	})
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, c := range []*cobra.Command{armCmd, disarmCmd} {
		c.Flags().BoolVarP(&wait, "wait", "w", false, "poll until the panel reports the new state")
		c.Flags().DurationVar(&waitTimeout, "wait-timeout", 30*time.Second, "how long to wait for the panel")
	}

	panicCmd.Flags().BoolVar(&confirmPanic, "confirm", false, "confirm that the alarm should sound")

	rootCmd.AddCommand(statusCmd, armCmd, disarmCmd, panicCmd)
}
