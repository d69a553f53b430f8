package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"nomnomhub/internal/app"
	"nomnomhub/internal/generate"
	"nomnomhub/internal/pkg"
)

var (
	newEditor      string
	newTemplate    string
	newPath        string
	newPackages    []string
	newFiles       []string
	newDisplayName string
	newDescription string
	newVersion     string
	newName        string
)

// newCmd groups generators
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate projects and templates",
}

var newProjectCmd = &cobra.Command{
	Use:   "project <name>",
	Short: "Generate a project",
	Long: `Generate a project from a template, or an empty project created by the
editor when no template is given. The project is registered afterwards.

Examples:
  nomnom new project Game --template com.unity.template.3d
  nomnom new project Game --editor 2022.3.10f1 --package com.unity.timeline@1.7.5
  nomnom new project Game --template com.me.template.demo --file 'package/ProjectData~/Assets/**'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNewProject(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

var newTemplateCmd = &cobra.Command{
	Use:   "template <name>",
	Short: "Pack a new user template",
	Long: `Pack a new user template from an existing template (--base) or a blank
scaffold, and register it with the hub.

Example:
  nomnom new template com.me.template.shooter --base com.unity.template.3d --display-name "Shooter"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNewTemplate(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

var newTemplateFromProjectCmd = &cobra.Command{
	Use:   "template-from-project <project-path>",
	Short: "Pack an existing project as a user template",
	Long: `Pack a project on disk as a user template. The editor version defaults to
the one recorded in the project's ProjectVersion.txt.

Example:
  nomnom new template-from-project ~/Projects/Game --name com.me.template.game`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNewTemplateFromProject(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	newCmd.AddCommand(newProjectCmd)
	newCmd.AddCommand(newTemplateCmd)
	newCmd.AddCommand(newTemplateFromProjectCmd)

	for _, cmd := range []*cobra.Command{newProjectCmd, newTemplateCmd, newTemplateFromProjectCmd} {
		cmd.Flags().StringVarP(&newEditor, "editor", "e", "", "editor version (default: last used or newest)")
		cmd.Flags().StringArrayVarP(&newFiles, "file", "f", nil, "doublestar pattern selecting files to copy (repeatable)")
	}
	for _, cmd := range []*cobra.Command{newProjectCmd, newTemplateCmd} {
		cmd.Flags().StringArrayVarP(&newPackages, "package", "p", nil, "package as name@version or path to package.json, replaces the resolved set (repeatable)")
	}
	newProjectCmd.Flags().StringVarP(&newTemplate, "template", "t", "", "template to start from (default: empty editor project)")
	newTemplateCmd.Flags().StringVarP(&newTemplate, "base", "b", "", "template to start from (default: blank scaffold)")

	for _, cmd := range []*cobra.Command{newTemplateCmd, newTemplateFromProjectCmd} {
		cmd.Flags().StringVar(&newDisplayName, "display-name", "", "display name shown by the hub")
		cmd.Flags().StringVar(&newDescription, "description", "", "template description")
		cmd.Flags().StringVar(&newVersion, "version", "1.0.0", "template version")
	}
	newProjectCmd.Flags().StringVar(&newPath, "path", "", "parent directory (default: configured new project path)")
	newTemplateFromProjectCmd.Flags().StringVar(&newName, "name", "", "template package name, e.g. com.me.template.game")
	_ = newTemplateFromProjectCmd.MarkFlagRequired("name")
}

// parsePackages turns --package values into an override set. No values means
// no override.
func parsePackages(args []string) ([]pkg.MinimalPackage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	packages := make([]pkg.MinimalPackage, 0, len(args))
	for _, arg := range args {
		p, err := app.ParsePackage(arg)
		if err != nil {
			return nil, err
		}
		packages = append(packages, p)
	}
	return packages, nil
}

func runNewProject(ctx context.Context, out io.Writer, name string) error {
	editorVersion, err := editorVersionArg([]string{newEditor}, 0)
	if err != nil {
		return err
	}
	install, err := appCtx.Editor(editorVersion)
	if err != nil {
		return err
	}
	packages, err := parsePackages(newPackages)
	if err != nil {
		return err
	}

	req := generate.ProjectRequest{
		Name:     name,
		Path:     newPath,
		Install:  install,
		Packages: packages,
		Files:    newFiles,
	}
	if newTemplate != "" {
		template, err := appCtx.FindTemplate(editorVersion, newTemplate)
		if err != nil {
			return err
		}
		req.Template = &template
	}

	result, err := appCtx.GenerateProject(ctx, req)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, result)
	}

	fmt.Fprintf(out, "✅ Created project %s\n", name)
	fmt.Fprintf(out, "📁 %s\n", result.Path)
	fmt.Fprintf(out, "📦 %d packages in manifest\n", len(result.Manifest.Dependencies))
	printCopyFailures(out, result.Copy)
	return nil
}

func runNewTemplate(ctx context.Context, out io.Writer, name string) error {
	editorVersion, err := editorVersionArg([]string{newEditor}, 0)
	if err != nil {
		return err
	}
	install, err := appCtx.Editor(editorVersion)
	if err != nil {
		return err
	}
	packages, err := parsePackages(newPackages)
	if err != nil {
		return err
	}

	req := generate.TemplateRequest{
		TemplateMetadata: generate.TemplateMetadata{
			Name:        name,
			DisplayName: newDisplayName,
			Version:     newVersion,
			Description: newDescription,
		},
		Install:  install,
		Packages: packages,
		Files:    newFiles,
	}
	if newTemplate != "" {
		base, err := appCtx.FindTemplate(editorVersion, newTemplate)
		if err != nil {
			return err
		}
		req.Base = &base
	}

	result, err := appCtx.GenerateTemplate(ctx, req)
	if err != nil {
		return err
	}
	return printTemplateResult(out, result)
}

func runNewTemplateFromProject(ctx context.Context, out io.Writer, projectPath string) error {
	project, err := app.LoadProject(projectPath)
	if err != nil {
		return err
	}
	editorVersion := newEditor
	if editorVersion == "" {
		editorVersion = project.Version
	}
	install, err := appCtx.Editor(editorVersion)
	if err != nil {
		return err
	}

	result, err := appCtx.GenerateTemplateFromProject(ctx, generate.FromProjectRequest{
		TemplateMetadata: generate.TemplateMetadata{
			Name:        newName,
			DisplayName: newDisplayName,
			Version:     newVersion,
			Description: newDescription,
		},
		Install:     install,
		ProjectPath: project.Path,
		Files:       newFiles,
	})
	if err != nil {
		return err
	}
	return printTemplateResult(out, result)
}

func printTemplateResult(out io.Writer, result *generate.TemplateResult) error {
	if jsonOutput {
		return printJSON(out, result)
	}
	fmt.Fprintf(out, "✅ Packed template %s\n", result.Template.ID())
	fmt.Fprintf(out, "📁 %s\n", result.Template.Path)
	if result.Archive != nil {
		fmt.Fprintf(out, "🔐 SHA256: %s\n", result.Archive.SHA256)
		fmt.Fprintf(out, "💾 Size: %s\n", formatSize(result.Archive.SizeBytes))
	}
	printCopyFailures(out, result.Copy)
	return nil
}

func printCopyFailures(out io.Writer, report *generate.CopyReport) {
	if report == nil || report.OK() {
		return
	}
	fmt.Fprintf(out, "⚠️  %d files could not be copied:\n", len(report.Failures))
	for _, failure := range report.Failures {
		fmt.Fprintf(out, "  %s: %s\n", failure.Path, failure.Error)
	}
}
