package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"nomnomhub/internal/app"
)

// prefsCmd shows and changes preferences
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show and change preferences",
	Long: `Preferences override the config file paths and are stored in
~/.nomnom/prefs.json.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrefsShow(cmd.OutOrStdout())
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a preference; no value clears it",
	Long:  "Set a preference; no value clears it.\n\nKeys: " + strings.Join(app.PrefKeys(), ", "),
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := ""
		if len(args) == 2 {
			value = args[1]
		}
		return runPrefsSet(cmd.OutOrStdout(), args[0], value)
	},
}

func init() {
	prefsCmd.AddCommand(prefsSetCmd)
}

func runPrefsShow(out io.Writer) error {
	settings := appCtx.Settings()
	if jsonOutput {
		return printJSON(out, settings)
	}

	rows := [][]string{
		{"editors path", settings.EditorsPath},
		{"hub path", settings.HubPath},
		{"appdata path", settings.AppDataPath},
		{"new project path", settings.NewProjectPath},
		{"cache dir", settings.CacheDir},
		{"editor timeout", settings.EditorTimeout},
		{"api address", settings.APIAddr},
	}
	printTable(out, "", []string{"SETTING", "VALUE"}, rows)
	return nil
}

func runPrefsSet(out io.Writer, key, value string) error {
	if err := appCtx.SetPref(key, value); err != nil {
		return err
	}
	if value == "" {
		fmt.Fprintf(out, "✅ Cleared %s\n", key)
		return nil
	}
	fmt.Fprintf(out, "✅ Set %s to %s\n", key, value)
	return nil
}
