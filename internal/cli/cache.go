package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd groups cache commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the package and template cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached package lists and template descriptors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appCtx.ClearCache(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "🧹 Cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}
