// Package cmdutil provides shared flag and annotation helpers for pkgfeed commands.
package cmdutil

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/pkgfeed/internal/cmd/output"
)

// annotationProjectOptional marks commands that run without a configured project.
const annotationProjectOptional = "pkgfeed/project-optional"

// MarkProjectOptional lets cmd run without a configured project.
func MarkProjectOptional(cmd *cobra.Command) {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationProjectOptional] = "true"
}

// ProjectOptional reports whether cmd was marked with MarkProjectOptional.
func ProjectOptional(cmd *cobra.Command) bool {
	return cmd.Annotations[annotationProjectOptional] == "true"
}

// ResolveFormat validates an explicit format or detects one from the terminal.
func ResolveFormat(explicit string) (output.Format, error) {
	format, err := output.ParseFormat(explicit)
	if err != nil {
		return "", err
	}
	return output.DetectFormat(string(format)), nil
}
