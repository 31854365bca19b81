package main

import (
	"fmt"
	"os"

	"feedmail/internal/cli"
)

// Version is the version of the application, set at build time
var Version = "dev"

func main() {
	if err := cli.NewRootCommand(Version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "feedmail: %v\n", err)
		os.Exit(1)
	}
}
