package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"nomnomhub/internal/app"
	"nomnomhub/internal/pkg"
)

// projectrootCmd shows which project a directory belongs to
var projectrootCmd = &cobra.Command{
	Use:   "projectroot [dir]",
	Short: "Show the project containing a directory",
	Long: `Walk up from dir (default: the working directory) to the closest directory
holding Assets, then report its editor version, whether that editor is
installed and whether the project is registered.

"projects add" and "projects open" use the same lookup when no path is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := ""
		if len(args) == 1 {
			start = args[0]
		}
		return runProjectRoot(cmd.OutOrStdout(), start)
	},
}

func init() {
	rootCmd.AddCommand(projectrootCmd)
}

func runProjectRoot(out io.Writer, start string) error {
	root, err := findProjectRoot(start)
	if err != nil {
		return err
	}
	project, err := app.LoadProject(root)
	if err != nil {
		return err
	}

	installed := true
	if _, err := appCtx.Editor(project.Version); err != nil {
		if !errors.Is(err, pkg.ErrNotFound) {
			return err
		}
		installed = false
	}
	registered := false
	for _, p := range appCtx.Projects() {
		if p.Path == project.Path {
			registered = true
			break
		}
	}

	if jsonOutput {
		return printJSON(out, map[string]interface{}{
			"project":         project,
			"editorInstalled": installed,
			"registered":      registered,
		})
	}

	fmt.Fprintf(out, "📁 Project root: %s\n", project.Path)
	if installed {
		fmt.Fprintf(out, "✅ Editor %s is installed\n", project.Version)
	} else {
		fmt.Fprintf(out, "⚠️  Editor %s is not installed\n", project.Version)
	}
	if registered {
		fmt.Fprintln(out, "✅ Registered")
	} else {
		fmt.Fprintln(out, "ℹ️  Not registered; run 'nomnom projects add'")
	}
	return nil
}

// findProjectRoot walks up from start, or the working directory when start is
// empty, to the closest project root
func findProjectRoot(start string) (string, error) {
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		start = cwd
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if app.IsProjectRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", pkg.NewError(pkg.ErrNotFound, "no project found in directory tree").With("start", start)
}

// projectPathArg returns args[0] or the project around the working directory
func projectPathArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return findProjectRoot("")
}
