package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds a `version` subcommand to root.
// With --short only the release is printed, which suits scripts.
func AttachCobraVersionCommand(root *cobra.Command) {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long:  "Print the release, the commit and the build time, followed by the User-Agent sent to the Yale API.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()

			if short {
				_, _ = fmt.Fprintln(out, Short())

				return
			}

			_, _ = fmt.Fprintln(out, Full())
			_, _ = fmt.Fprintf(out, "user agent: %s\n", UserAgent())
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print the release only")
	root.AddCommand(cmd)
}
