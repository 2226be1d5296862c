package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jpalmerr/ethnode"
	"github.com/jpalmerr/ethnode/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates the CLI logger from the log section of the config.
func newLogger(w io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(lc.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// serveCmd runs the node.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the node",
	Long: `Run the ethnode runtime.

The node will:
  - Load configuration from the specified YAML file
  - Bring the interface up and wait for an address
  - Serve /api/hello and / on the configured listen address
  - Log interface stats and blink the status LED

The node runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  ethnode serve -c config.yaml
  ethnode serve --config /etc/ethnode/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"interface", cfg.Interface.Name,
		"driver", cfg.Interface.Driver,
		"addressing", cfg.Interface.Addressing,
		"listen", cfg.HTTP.Listen,
	)

	opts, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}

	node, err := ethnode.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start node - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- node.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("node error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("node error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
