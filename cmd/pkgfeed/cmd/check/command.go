// Package check implements the command that fetches and diffs a project.
package check

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/pkgfeed"
	"github.com/agentstation/pkgfeed/internal/appcontext"
	"github.com/agentstation/pkgfeed/internal/cmd/cmdutil"
	"github.com/agentstation/pkgfeed/internal/cmd/output"
)

// Flags holds check-specific flags.
type Flags struct {
	ChangesFile string
}

// NewCommand creates the check command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "check",
		GroupID: "core",
		Short:   "Fetch the project and record detected changes",
		Long: `Check fetches the project from Repology, compares every package against
the previous snapshot and saves the new snapshot.

Detected changes are written to the changes file, which the feed command
turns into RSS items. A failed fetch is reported but does not fail the
command; the previous snapshot is kept so no change is lost.`,
		Example: `  pkgfeed check -p gtk                       # Check the gtk project
  pkgfeed check -p gtk --changes out.json    # Write changes to out.json
  pkgfeed check -p gtk -o yaml               # Print changes as YAML`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmdutil.ResolveFormat(app.OutputFormat())
			if err != nil {
				return err
			}

			var m pkgfeed.Monitor
			if cmd.Flags().Changed("changes") {
				m, err = app.MonitorWithOptions(pkgfeed.WithChangesFile(flags.ChangesFile))
				if err == nil {
					defer m.Close()
				}
			} else {
				m, err = app.Monitor()
			}
			if err != nil {
				return err
			}

			result, err := m.Check(cmd.Context())
			if err != nil {
				return err
			}

			if err := app.FlushMetrics(); err != nil {
				app.Logger().Warn().Err(err).Msg("Could not write metrics")
			}

			report := output.NewCheckReport(result)
			if err := output.Print(cmd.OutOrStdout(), format, report); err != nil {
				return err
			}
			if format == output.FormatTable {
				return output.PrintWarnings(cmd.ErrOrStderr(), report.Warnings)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.ChangesFile, "changes", "", "write detected changes to this file")

	return cmd
}
