package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/yale-alarm/internal/service/report"
)

// reportCmd prints one of the read-only panel reports.
var reportCmd = &cobra.Command{
	Use:       "report <" + strings.Join(report.Kinds(), "|") + ">",
	Short:     "Print a panel report.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: report.Kinds(),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		return report.Run(ctx, &report.Options{
			ConfigPath: configPath,
			Output:     cmd.OutOrStdout(),
			Kind:       args[0],
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(reportCmd)
}
