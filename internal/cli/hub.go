package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// hubCmd starts the vendor hub
var hubCmd = &cobra.Command{
	Use:   "hub",
	Short: "Start the vendor hub application",
	Long:  `Start the hub executable set by hub_path in the config or the hubPath preference.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appCtx.OpenHub(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "🚀 Hub started")
		return nil
	},
}
