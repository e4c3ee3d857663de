// Package cli implements the phiremock command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build.
	Version = "dev"
	// Commit is injected during build.
	Commit = "none"
	// BuildDate is injected during build.
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "phiremock",
	Short: "phiremock is an HTTP mock server for test suites",
	Long: `phiremock accepts incoming HTTP(S) requests and answers them from a
library of expectations: static responses, proxied upstream calls, delays,
and scenario-driven multi-step flows. Test suites drive it through the
management API under /__phiremock.

Running phiremock with no subcommand starts the server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// Execute runs the CLI. It exits non-zero on any error, including bind and
// configuration failures surfaced by serve.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	initServeCmd()
	initVersionCmd()

	// Running bare `phiremock` serves with the same flag set.
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
}
