package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oshokin/yale-alarm/internal/service/locks"
)

var (
	// lockPIN is the code sent when opening a lock.
	lockPIN string

	locksCmd = &cobra.Command{
		Use:   "locks",
		Short: "List and operate door locks.",
	}

	locksListCmd = &cobra.Command{
		Use:   "list",
		Short: "List door locks with their state and configuration.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return locks.List(ctx, lockOptions(cmd, ""))
		},
	}

	locksOpenCmd = &cobra.Command{
		Use:   "open <lock>",
		Short: "Unbolt a door lock.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			opts := lockOptions(cmd, args[0])
			opts.PIN = lockPIN

			return locks.Open(ctx, opts)
		},
	}

	locksCloseCmd = &cobra.Command{
		Use:   "close <lock>",
		Short: "Bolt a door lock.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return locks.Close(ctx, lockOptions(cmd, args[0]))
		},
	}

	locksVolumeCmd = &cobra.Command{
		Use:       "volume <lock> <high|low|off>",
		Short:     "Set the keypad volume of a door lock.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"high", "low", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			opts := lockOptions(cmd, args[0])
			opts.Volume = args[1]

			return locks.SetVolume(ctx, opts)
		},
	}

	locksAutoLockCmd = &cobra.Command{
		Use:   "autolock <lock> <on|off>",
		Short: "Switch automatic re-bolting of a door lock.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := parseSwitch(args[1])
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			opts := lockOptions(cmd, args[0])
			opts.AutoLock = enabled

			return locks.SetAutoLock(ctx, opts)
		},
	}
)

func lockOptions(cmd *cobra.Command, name string) *locks.Options {
	return &locks.Options{
		ConfigPath: configPath,
		Output:     cmd.OutOrStdout(),
		Name:       name,
	}
}

// parseSwitch accepts on/off in addition to the usual boolean spellings.
func parseSwitch(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}

	return v, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	locksOpenCmd.Flags().StringVarP(&lockPIN, "pin", "p", "", "PIN code of the lock")

	locksCmd.AddCommand(locksListCmd, locksOpenCmd, locksCloseCmd, locksVolumeCmd, locksAutoLockCmd)
	rootCmd.AddCommand(locksCmd)
}
