// Package run implements the command that checks and publishes in one pass.
package run

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/pkgfeed/internal/appcontext"
	"github.com/agentstation/pkgfeed/internal/cmd/cmdutil"
	"github.com/agentstation/pkgfeed/internal/cmd/output"
)

// NewCommand creates the run command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		GroupID: "core",
		Short:   "Check the project and update the feed",
		Long: `Run performs check and feed in one pass, handing the detected changes
over in memory. The changes file is still written when changes_file is set.`,
		Example: `  pkgfeed run -p gtk --feed-file gtk.xml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmdutil.ResolveFormat(app.OutputFormat())
			if err != nil {
				return err
			}

			m, err := app.Monitor()
			if err != nil {
				return err
			}

			result, runErr := m.Run(cmd.Context())

			if err := app.FlushMetrics(); err != nil {
				app.Logger().Warn().Err(err).Msg("Could not write metrics")
			}
			if runErr != nil {
				return runErr
			}

			report := output.NewRunReport(result)
			if err := output.Print(cmd.OutOrStdout(), format, report); err != nil {
				return err
			}
			if format == output.FormatTable {
				return output.PrintWarnings(cmd.ErrOrStderr(), append(report.Check.Warnings, feedWarnings(report)...))
			}
			return nil
		},
	}
}

func feedWarnings(r output.RunReport) []string {
	if r.Feed == nil {
		return nil
	}
	return r.Feed.Warnings
}
