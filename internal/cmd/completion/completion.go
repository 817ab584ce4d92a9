// Package completion generates and installs shell completion scripts.
package completion

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentstation/pkgfeed/internal/utils/atomicfile"
	"github.com/agentstation/pkgfeed/pkg/constants"
)

// Supported shells.
const (
	ShellBash       = "bash"
	ShellZsh        = "zsh"
	ShellFish       = "fish"
	ShellPowerShell = "powershell"
)

// Shells lists the supported shells in help order.
var Shells = []string{ShellBash, ShellZsh, ShellFish, ShellPowerShell}

// Generate writes the completion script for shell.
func Generate(root *cobra.Command, w io.Writer, shell string) error {
	switch shell {
	case ShellBash:
		return root.GenBashCompletionV2(w, true)
	case ShellZsh:
		return root.GenZshCompletion(w)
	case ShellFish:
		return root.GenFishCompletion(w, true)
	case ShellPowerShell:
		return root.GenPowerShellCompletionWithDesc(w)
	default:
		return fmt.Errorf("unsupported shell: %s", shell)
	}
}

// Install writes the completion script for shell to its install path and
// returns that path.
func Install(root *cobra.Command, shell string) (string, error) {
	target, err := Path(shell)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := Generate(root, &buf, shell); err != nil {
		return "", fmt.Errorf("failed to generate %s completion: %w", shell, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), constants.DirPermissions); err != nil {
		return "", fmt.Errorf("failed to create completion directory: %w", err)
	}
	if err := atomicfile.Write(target, buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to write completion file: %w", err)
	}
	return target, nil
}

// Uninstall removes the installed completion script for shell. It returns
// the path and whether a file was removed.
func Uninstall(shell string) (string, bool, error) {
	target, err := Path(shell)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return target, false, nil
	}
	if err := os.Remove(target); err != nil {
		return target, false, fmt.Errorf("could not remove %s: %w", target, err)
	}
	return target, true, nil
}

// Path returns where Install puts the completion script for shell.
// Homebrew prefixes win over the per-user directories.
func Path(shell string) (string, error) {
	var brewDir, brewName, userDir, userName string
	switch shell {
	case ShellBash:
		brewDir, brewName = filepath.Join("etc", "bash_completion.d"), "pkgfeed"
		userDir, userName = ".bash_completion.d", "pkgfeed"
	case ShellZsh:
		brewDir, brewName = filepath.Join("share", "zsh", "site-functions"), "_pkgfeed"
		userDir, userName = filepath.Join(".zsh", "completions"), "_pkgfeed"
	case ShellFish:
		brewDir, brewName = filepath.Join("share", "fish", "vendor_completions.d"), "pkgfeed.fish"
		userDir, userName = filepath.Join(".config", "fish", "completions"), "pkgfeed.fish"
	default:
		return "", fmt.Errorf("cannot install completions for shell: %s", shell)
	}

	if prefix := brewPrefix(); prefix != "" {
		return filepath.Join(prefix, brewDir, brewName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userDir, userName), nil
}

func brewPrefix() string {
	if prefix := os.Getenv("HOMEBREW_PREFIX"); prefix != "" {
		return prefix
	}
	for _, prefix := range []string{"/opt/homebrew", "/usr/local"} {
		if _, err := os.Stat(filepath.Join(prefix, "bin", "brew")); err == nil {
			return prefix
		}
	}
	return ""
}
