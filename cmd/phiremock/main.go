// phiremock - HTTP mock server for test suites.
package main

import "github.com/fivetide/phiremock-server/pkg/cli"

// Build-time variables set via ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = buildDate
	cli.Execute()
}
