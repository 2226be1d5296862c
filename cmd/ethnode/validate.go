package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jpalmerr/ethnode/config"
	"github.com/jpalmerr/ethnode/internal/netif"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the node.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an ethnode configuration file without starting the node.

This command parses the YAML, applies defaults, expands environment
variables, and validates all fields. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  ethnode validate -c config.yaml
  ethnode validate --config /etc/ethnode/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ifc := cfg.Interface
	addressing := ifc.Addressing
	if ifc.Addressing == config.AddressingStatic {
		addressing = fmt.Sprintf("static %s/%s via %s", ifc.IP, ifc.Netmask, ifc.Gateway)
	}
	led := cfg.Blink.LED
	if led == "" {
		led = "log only"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Interface:       %s (%s driver, mac %s)\n", ifc.Name, ifc.Driver, ifc.MAC)
	fmt.Printf("  Addressing:      %s\n", addressing)
	fmt.Printf("  Listen:          %s\n", cfg.HTTP.Listen)
	fmt.Printf("  Max connections: %s\n", humanize.Comma(int64(cfg.HTTP.MaxConnections)))
	fmt.Printf("  Timeouts:        write %s, idle %s\n", cfg.HTTP.WriteTimeout.Duration(), cfg.HTTP.IdleTimeout.Duration())
	fmt.Printf("  Frame size:      %s to %s\n",
		humanize.Bytes(netif.HeaderLen), humanize.Bytes(netif.MaxFrameLen))
	fmt.Printf("  Stats interval:  %s\n", cfg.StatsInterval.Duration())
	fmt.Printf("  Blink period:    %s (%s)\n", cfg.Blink.Period.Duration(), led)

	return nil
}
