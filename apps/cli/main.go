// Command isoenv is the entry point of the isoenv CLI.
package main

import (
	"github.com/isoenv/isoenv/apps/cli/cmd"
)

var (
	// Version is set during the build process.
	Version = "dev"
	// BuildTime is set during the build process.
	BuildTime = "unknown"
)

func main() {
	cmd.Execute(Version, BuildTime)
}
