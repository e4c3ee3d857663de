package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("phiremock %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	},
}

func initVersionCmd() {
	rootCmd.AddCommand(versionCmd)
}
