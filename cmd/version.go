package cmd

import (
	"fmt"

	"github.com/4rdii/transaction-debugger-agent/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version of tx-debugger.",
	Long:  `Prints the version of tx-debugger.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
