package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"nomnomhub/internal/templates"
)

// templatesCmd groups template commands
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List, inspect and delete templates",
	Long: `Work with the templates available to an editor version: the ones shipped
with the editor and the user templates registered in the hub data directory.

Commands that take an editor version fall back to the editor used last, or the
newest installed one.`,
}

var templatesListCmd = &cobra.Command{
	Use:     "list [editor-version]",
	Short:   "List templates for an editor version",
	Aliases: []string{"ls"},
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		editorVersion, err := editorVersionArg(args, 0)
		if err != nil {
			return err
		}
		return runTemplatesList(cmd.OutOrStdout(), editorVersion)
	},
}

var templatesInspectCmd = &cobra.Command{
	Use:   "inspect <template> [editor-version]",
	Short: "Show the resolved packages of a template",
	Long: `Read a template's package.json and lock file, resolve its packages against
the editor catalog and report the render pipelines it targets.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		editorVersion, err := editorVersionArg(args, 1)
		if err != nil {
			return err
		}
		return runTemplatesInspect(cmd.Context(), cmd.OutOrStdout(), editorVersion, args[0])
	},
}

var templatesTreeCmd = &cobra.Command{
	Use:   "tree <template> [editor-version]",
	Short: "Show the files inside a template",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		editorVersion, err := editorVersionArg(args, 1)
		if err != nil {
			return err
		}
		return runTemplatesTree(cmd.OutOrStdout(), editorVersion, args[0])
	},
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <template> [editor-version]",
	Short: "Delete a user template",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		editorVersion, err := editorVersionArg(args, 1)
		if err != nil {
			return err
		}
		return runTemplatesDelete(cmd.OutOrStdout(), editorVersion, args[0])
	},
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesInspectCmd)
	templatesCmd.AddCommand(templatesTreeCmd)
	templatesCmd.AddCommand(templatesDeleteCmd)
}

func runTemplatesList(out io.Writer, editorVersion string) error {
	list, err := appCtx.ListTemplates(editorVersion)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, list)
	}

	rows := make([][]string, 0, len(list))
	for _, t := range list {
		origin := "editor"
		if t.Custom {
			origin = "custom"
		} else if strings.HasPrefix(t.Path, appCtx.Templates().UserDir()) {
			origin = "user"
		}
		rows = append(rows, []string{t.Name, t.Version, origin})
	}
	printTable(out, "No templates for editor "+editorVersion, []string{"NAME", "VERSION", "ORIGIN"}, rows)
	return nil
}

func runTemplatesInspect(ctx context.Context, out io.Writer, editorVersion, name string) error {
	info, err := appCtx.InspectTemplate(ctx, editorVersion, name)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, info)
	}

	pipelines := make([]string, 0, len(info.Pipelines))
	for _, p := range info.Pipelines {
		pipelines = append(pipelines, string(p))
	}

	fmt.Fprintf(out, "📦 %s %s\n", info.Template.Name, info.Template.Version)
	if info.Package.DisplayName != "" {
		fmt.Fprintf(out, "📝 %s\n", info.Package.DisplayName)
	}
	fmt.Fprintf(out, "🎨 Pipelines: %s\n", strings.Join(pipelines, ", "))
	fmt.Fprintf(out, "💾 Size: %s\n", formatSize(info.DiskSizeBytes))

	names := make([]string, 0, len(info.Package.Dependencies))
	for depName := range info.Package.Dependencies {
		names = append(names, depName)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, depName := range names {
		rows = append(rows, []string{depName, info.Package.Dependencies[depName]})
	}
	printTable(out, "No dependencies", []string{"PACKAGE", "VERSION"}, rows)

	if len(info.Excluded) > 0 {
		fmt.Fprintf(out, "Excluded: %s\n", strings.Join(info.Excluded, ", "))
	}
	return nil
}

func runTemplatesTree(out io.Writer, editorVersion, name string) error {
	tree, err := appCtx.TemplateTree(editorVersion, name)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, tree)
	}

	fmt.Fprintln(out, tree.Name+"/")
	printTree(out, tree.Children, "")
	return nil
}

func printTree(out io.Writer, nodes []*templates.FileNode, indent string) {
	for i, node := range nodes {
		branch, next := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, next = "└── ", "    "
		}
		label := node.Name
		if node.IsDir {
			label += "/"
		}
		fmt.Fprintln(out, indent+branch+label)
		printTree(out, node.Children, indent+next)
	}
}

func runTemplatesDelete(out io.Writer, editorVersion, name string) error {
	deleted, err := appCtx.DeleteTemplate(editorVersion, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "🗑️  Deleted template %s\n", deleted.ID())
	return nil
}
