package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// projectsCmd manages the project registry
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage registered projects",
	Long: `Manage the list of projects the hub knows about. Removing a project only
drops it from the list; its files stay on disk.`,
}

var projectsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List registered projects, most recent first",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProjectsList(cmd.OutOrStdout())
	},
}

var projectsAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register an existing project (default: the one around the working directory)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := projectPathArg(args)
		if err != nil {
			return err
		}
		return runProjectsAdd(cmd.OutOrStdout(), path)
	},
}

var projectsRemoveCmd = &cobra.Command{
	Use:     "remove <path>",
	Short:   "Unregister a project",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProjectsRemove(cmd.OutOrStdout(), args[0])
	},
}

var projectsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Unregister projects whose directory is gone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProjectsPrune(cmd.OutOrStdout())
	},
}

var projectsOpenCmd = &cobra.Command{
	Use:   "open [path]",
	Short: "Open a project in the editor version it records",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := projectPathArg(args)
		if err != nil {
			return err
		}
		return runProjectsOpen(cmd.OutOrStdout(), path)
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsAddCmd)
	projectsCmd.AddCommand(projectsRemoveCmd)
	projectsCmd.AddCommand(projectsPruneCmd)
	projectsCmd.AddCommand(projectsOpenCmd)
}

func runProjectsList(out io.Writer) error {
	projects := appCtx.Projects()
	if jsonOutput {
		return printJSON(out, projects)
	}

	rows := make([][]string, 0, len(projects))
	for _, project := range projects {
		rows = append(rows, []string{project.Name, project.Version, project.Path})
	}
	printTable(out, "No projects registered", []string{"NAME", "EDITOR", "PATH"}, rows)
	return nil
}

func runProjectsAdd(out io.Writer, path string) error {
	project, err := appCtx.AddProject(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Registered %s (%s)\n", project.Name, project.Version)
	return nil
}

func runProjectsRemove(out io.Writer, path string) error {
	if err := appCtx.RemoveProject(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "🗑️  Unregistered %s\n", path)
	return nil
}

func runProjectsPrune(out io.Writer) error {
	removed, err := appCtx.PruneProjects()
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Fprintln(out, "Nothing to prune")
		return nil
	}
	for _, project := range removed {
		fmt.Fprintf(out, "🗑️  Unregistered %s\n", project.Path)
	}
	return nil
}

func runProjectsOpen(out io.Writer, path string) error {
	project, err := appCtx.OpenProject(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "🚀 Opening %s with editor %s\n", project.Name, project.Version)
	return nil
}
