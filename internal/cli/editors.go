package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"nomnomhub/internal/editor"
)

// editorsCmd lists installed editors
var editorsCmd = &cobra.Command{
	Use:   "editors",
	Short: "List installed editors",
	Long: `List the editor versions found in the editors path, newest first.

An editor install is a directory holding modules.json.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEditors(cmd.OutOrStdout())
	},
}

// editorsOpenCmd starts an editor
var editorsOpenCmd = &cobra.Command{
	Use:   "open <version> [-- editor args...]",
	Short: "Start an installed editor",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEditorsOpen(cmd.OutOrStdout(), args[0], args[1:])
	},
}

func init() {
	editorsCmd.AddCommand(editorsOpenCmd)
}

func runEditors(out io.Writer) error {
	editors, err := appCtx.Editors()
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, editors)
	}

	rows := make([][]string, 0, len(editors))
	for _, install := range editors {
		rows = append(rows, []string{install.Version, strconv.Itoa(len(install.Modules)), install.ExePath})
	}
	printTable(out, "No editors installed in "+appCtx.Settings().EditorsPath, []string{"VERSION", "MODULES", "EXECUTABLE"}, rows)
	return nil
}

func runEditorsOpen(out io.Writer, editorVersion string, args []string) error {
	install, err := appCtx.Editor(editorVersion)
	if err != nil {
		return err
	}
	if err := editor.Open(appCtx.Runner, install, args...); err != nil {
		return err
	}
	fmt.Fprintf(out, "🚀 Started editor %s\n", install.Version)
	return nil
}
