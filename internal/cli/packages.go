package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"nomnomhub/internal/app"
	"nomnomhub/internal/pkg"
)

// packagesCmd groups package commands
var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Editor default packages and remembered git/local packages",
}

var packagesDefaultsCmd = &cobra.Command{
	Use:   "defaults [editor-version]",
	Short: "List the packages built into an editor's catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		editorVersion, err := editorVersionArg(args, 0)
		if err != nil {
			return err
		}
		return runPackagesDefaults(cmd.OutOrStdout(), editorVersion)
	},
}

var packagesGitCmd = &cobra.Command{
	Use:   "git <url>",
	Short: "Read a package from a git repository and remember it",
	Long: `Clone a git repository and read its package.json.

The url may select a ref with #<branch-or-tag> and a package directory with
?path=<dir>, for example:
  nomnom packages git https://github.com/org/tools.git?path=Packages/com.org.tools#v1.2.0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPackagesGit(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

var packagesLocalCmd = &cobra.Command{
	Use:   "local <path/to/package.json>",
	Short: "Remember a package on disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPackagesLocal(cmd.OutOrStdout(), args[0])
	},
}

var packagesRememberedCmd = &cobra.Command{
	Use:     "remembered",
	Short:   "List remembered git and local packages",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPackagesRemembered(cmd.OutOrStdout())
	},
}

var packagesForgetCmd = &cobra.Command{
	Use:   "forget <name> <git-url> | forget <path/to/package.json>",
	Short: "Forget a remembered package",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPackagesForget(cmd.OutOrStdout(), args)
	},
}

func init() {
	packagesCmd.AddCommand(packagesDefaultsCmd)
	packagesCmd.AddCommand(packagesGitCmd)
	packagesCmd.AddCommand(packagesLocalCmd)
	packagesCmd.AddCommand(packagesRememberedCmd)
	packagesCmd.AddCommand(packagesForgetCmd)
}

func packageRows(packages []pkg.MinimalPackage) [][]string {
	rows := make([][]string, 0, len(packages))
	for _, p := range packages {
		rows = append(rows, []string{p.Name, p.Version, string(p.Type)})
	}
	return rows
}

func runPackagesDefaults(out io.Writer, editorVersion string) error {
	packages, err := appCtx.DefaultPackages(editorVersion)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, packages)
	}
	printTable(out, "No catalog packages for editor "+editorVersion, []string{"NAME", "VERSION", "TYPE"}, packageRows(packages))
	return nil
}

func runPackagesGit(ctx context.Context, out io.Writer, url string) error {
	descriptor, p, err := appCtx.GitPackage(ctx, url)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, p)
	}
	fmt.Fprintf(out, "✅ Remembered %s %s\n", descriptor.Name, descriptor.Version)
	fmt.Fprintf(out, "🌐 %s\n", p.Version)
	return nil
}

func runPackagesLocal(out io.Writer, path string) error {
	p, err := app.ParsePackage(path)
	if err != nil {
		return err
	}
	if p.Type != pkg.PackageTypeLocal {
		return pkg.NewError(pkg.ErrInvalidFormat, "expected a path to package.json").With("path", path)
	}
	if err := appCtx.AddLocalPackage(p); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Remembered local package %s %s\n", localPackageName(p.Name), p.Version)
	fmt.Fprintf(out, "📁 %s\n", p.Name)
	return nil
}

func runPackagesRemembered(out io.Writer) error {
	userCache, err := appCtx.UserCache()
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, userCache)
	}

	rows := make([][]string, 0, len(userCache.GitPackages)+len(userCache.LocalPackages))
	for _, p := range userCache.GitPackages {
		rows = append(rows, []string{p.Name, p.Version, string(p.Type), ""})
	}
	for _, p := range userCache.LocalPackages {
		rows = append(rows, []string{localPackageName(p.Name), p.Version, string(p.Type), p.Name})
	}
	printTable(out, "No remembered packages", []string{"NAME", "VERSION", "TYPE", "PATH"}, rows)
	return nil
}

// localPackageName reads the name out of a local package's descriptor. Local
// packages are keyed by their package.json path, which stands in when the
// file is gone or unreadable.
func localPackageName(descriptorPath string) string {
	descriptor, err := pkg.LoadDescriptor(descriptorPath)
	if err != nil || descriptor.Name == "" {
		return filepath.Base(filepath.Dir(descriptorPath))
	}
	return descriptor.Name
}

func runPackagesForget(out io.Writer, args []string) error {
	if len(args) == 2 {
		if err := appCtx.RemoveGitPackage(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "🗑️  Forgot git package %s\n", args[0])
		return nil
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if err := appCtx.RemoveLocalPackage(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "🗑️  Forgot local package %s\n", path)
	return nil
}
