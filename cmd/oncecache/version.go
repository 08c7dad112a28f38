package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "oncecache version: %s\n", version)
		if bi, ok := debug.ReadBuildInfo(); ok {
			fmt.Fprintf(out, "  go version: %s\n", bi.GoVersion)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
