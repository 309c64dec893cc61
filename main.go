package main

import (
	"fmt"
	"os"

	"github.com/tphakala/helmetwatch/cmd"
	"github.com/tphakala/helmetwatch/internal/buildinfo"
)

// Injected with -ldflags "-X main.version=... -X main.buildDate=... -X main.commit=..."
var (
	version   string
	buildDate string
	commit    string
)

func main() {
	rootCmd := cmd.RootCommand(buildinfo.New(version, buildDate, commit))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
