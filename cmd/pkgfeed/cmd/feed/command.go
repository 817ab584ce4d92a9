// Package feed implements the command that turns a changes file into RSS items.
package feed

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/pkgfeed"
	"github.com/agentstation/pkgfeed/internal/appcontext"
	"github.com/agentstation/pkgfeed/internal/cmd/cmdutil"
	"github.com/agentstation/pkgfeed/internal/cmd/output"
	"github.com/agentstation/pkgfeed/pkg/state"
)

// NewCommand creates the feed command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "feed CHANGES_FILE RSS_FILE",
		GroupID: "core",
		Short:   "Append recorded changes to an RSS feed",
		Long: `Feed reads a changes file written by check and appends one item per change
to the RSS file, creating it if needed.

Items already in the feed are skipped, the feed is trimmed to the newest
max_items entries, and a missing or unreadable changes file counts as no
changes. The command fails only when the RSS file cannot be written.`,
		Example: `  pkgfeed feed pkgfeed-changes.json feed.xml`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmdutil.ResolveFormat(app.OutputFormat())
			if err != nil {
				return err
			}

			// The file backend opens nothing until used, and this command never
			// touches the snapshot
			m, err := app.MonitorWithOptions(
				pkgfeed.WithFeedFile(args[1]),
				pkgfeed.WithStateBackend(state.BackendFile),
			)
			if err != nil {
				return err
			}
			defer m.Close()

			result, err := m.GenerateFromFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := app.FlushMetrics(); err != nil {
				app.Logger().Warn().Err(err).Msg("Could not write metrics")
			}

			report := output.NewFeedReport(result)
			if err := output.Print(cmd.OutOrStdout(), format, report); err != nil {
				return err
			}
			if format == output.FormatTable {
				return output.PrintWarnings(cmd.ErrOrStderr(), report.Warnings)
			}
			return nil
		},
	}

	cmdutil.MarkProjectOptional(cmd)

	return cmd
}
