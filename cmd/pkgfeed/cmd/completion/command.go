// Package completion implements the shell completion command.
package completion

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/pkgfeed/internal/cmd/cmdutil"
	"github.com/agentstation/pkgfeed/internal/cmd/completion"
	"github.com/agentstation/pkgfeed/internal/cmd/output"
)

// NewCommand creates the completion command.
func NewCommand() *cobra.Command {
	var install, uninstall bool

	cmd := &cobra.Command{
		Use:   "completion [" + strings.Join(completion.Shells, "|") + "]",
		Short: "Generate shell completion scripts",
		Long: `Completion prints the completion script for the given shell.

With --install the script is written where the shell picks it up
(Homebrew prefix when present, otherwise the home directory).`,
		Example: `  pkgfeed completion bash > /etc/bash_completion.d/pkgfeed
  pkgfeed completion zsh --install`,
		ValidArgs:             completion.Shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := args[0]
			switch {
			case install && uninstall:
				return fmt.Errorf("--install and --uninstall are mutually exclusive")
			case install:
				path, err := completion.Install(cmd.Root(), shell)
				if err != nil {
					return err
				}
				cmd.Printf("%s %s completions installed to %s\n", output.SymbolSuccess, shell, path)
				return nil
			case uninstall:
				path, removed, err := completion.Uninstall(shell)
				if err != nil {
					return err
				}
				if removed {
					cmd.Printf("%s Removed %s completions from %s\n", output.SymbolSuccess, shell, path)
				} else {
					cmd.Printf("No %s completions found at %s\n", shell, path)
				}
				return nil
			default:
				return completion.Generate(cmd.Root(), cmd.OutOrStdout(), shell)
			}
		},
	}

	cmd.Flags().BoolVar(&install, "install", false, "install the script for the current user")
	cmd.Flags().BoolVar(&uninstall, "uninstall", false, "remove a previously installed script")
	cmdutil.MarkProjectOptional(cmd)

	return cmd
}
