// Package main is the entry point for the ethnode CLI.
//
// ethnode can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	ethnode serve -c config.yaml    # Run the node
//	ethnode validate -c config.yaml # Validate configuration
//	ethnode version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "ethnode",
	Short: "A tiny Ethernet status node",
	Long: `ethnode brings up one Ethernet interface, serves its health over HTTP
and blinks a status LED.

Quick start:
  1. Create a config file (ethnode.yaml)
  2. Run: ethnode serve -c ethnode.yaml
  3. Open http://<ip>/api/hello

Example config:
  interface:
    addressing: static
    ip: 192.168.0.223
    netmask: 255.255.255.0
    gateway: 192.168.0.1
  http:
    listen: 0.0.0.0:8000`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this ethnode binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ethnode %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
