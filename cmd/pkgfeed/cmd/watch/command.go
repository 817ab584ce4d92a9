// Package watch implements the command that runs on a schedule.
package watch

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/pkgfeed"
	"github.com/agentstation/pkgfeed/internal/appcontext"
	"github.com/agentstation/pkgfeed/internal/cmd/output"
)

// NewCommand creates the watch command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:     "watch",
		GroupID: "core",
		Short:   "Run check and feed repeatedly",
		Long: `Watch runs immediately and then once per interval until interrupted.
Runs never overlap. A run that fails to write the feed stops the watch.`,
		Example: `  pkgfeed watch -p gtk --interval 30m`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = app.WatchInterval()
			}

			m, err := app.Monitor()
			if err != nil {
				return err
			}

			logger := app.Logger()
			out := cmd.OutOrStdout()

			return m.Watch(cmd.Context(), interval, pkgfeed.WithRunCallback(func(result *pkgfeed.RunResult, err error) {
				if ferr := app.FlushMetrics(); ferr != nil {
					logger.Warn().Err(ferr).Msg("Could not write metrics")
				}
				if err != nil || result == nil {
					return
				}
				symbol := output.SymbolSuccess
				if len(result.Warnings()) > 0 {
					symbol = output.SymbolWarning
				}
				_, _ = fmt.Fprintf(out, "%s %s\n", symbol, result.Summary())
			}))
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "time between runs (default from watch_interval)")

	return cmd
}
