package main

import (
	"fmt"
	"os"

	"github.com/stories1001/publisher/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	root := cli.NewRootCommand(fmt.Sprintf("%s (%s)", Version, Commit))
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
