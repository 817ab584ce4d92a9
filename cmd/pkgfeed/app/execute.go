package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/pkgfeed/cmd/pkgfeed/cmd/check"
	"github.com/agentstation/pkgfeed/cmd/pkgfeed/cmd/completion"
	"github.com/agentstation/pkgfeed/cmd/pkgfeed/cmd/feed"
	"github.com/agentstation/pkgfeed/cmd/pkgfeed/cmd/run"
	"github.com/agentstation/pkgfeed/cmd/pkgfeed/cmd/watch"
	"github.com/agentstation/pkgfeed/internal/cmd/cmdutil"
)

// Execute runs the pkgfeed CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "pkgfeed",
		Short:   "Package update feed for Repology projects",
		Version: a.version,
		Long: `pkgfeed tracks one Repology project across package repositories and
publishes detected changes as an RSS 2.0 feed.

A run fetches the project, compares the monitored fields against the
previous snapshot, records new, updated and removed packages, and appends
them to a bounded feed file.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	// Global flags only override config when set
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is $HOME/.pkgfeed.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, json, yaml")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.StringP("project", "p", "", "Repology project to monitor")
	flags.StringSlice("include", nil, "only monitor package identities matching these glob or regex patterns")
	flags.StringSlice("exclude", nil, "skip package identities matching these glob or regex patterns")
	flags.String("state-file", "", "where the previous snapshot is kept")
	flags.String("state-backend", "", "snapshot backend: file, sqlite")
	flags.String("feed-file", "", "RSS output file")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile after each run")
	flags.Int("max-items", 0, "maximum number of feed items")
	flags.Bool("content-guids", false, "derive item GUIDs from content only, so identical changes dedup across runs")

	// cobra's default completion command is replaced by our own
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.SetVersionTemplate("pkgfeed {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	// An explicit config file replaces what New loaded from the search path
	if path, _ := flags.GetString("config"); path != "" {
		config, err := LoadConfig(path)
		if err != nil {
			return err
		}
		a.config = config
	}

	a.config.UpdateFromFlags(flags)

	var except []string
	if cmdutil.ProjectOptional(cmd) {
		except = append(except, "Project")
	}
	if err := a.config.Validate(except...); err != nil {
		return err
	}

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(check.NewCommand(a))
	rootCmd.AddCommand(feed.NewCommand(a))
	rootCmd.AddCommand(run.NewCommand(a))
	rootCmd.AddCommand(watch.NewCommand(a))

	rootCmd.AddCommand(completion.NewCommand())
	rootCmd.AddCommand(a.CreateVersionCommand())
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("pkgfeed %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
	cmdutil.MarkProjectOptional(cmd)
	return cmd
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
