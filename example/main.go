package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/ethnode"
	"github.com/jpalmerr/ethnode/internal/driver"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// simulated wire with traffic and the odd link flap (see traffic.go)
	sim := driver.NewSim(true)

	node, err := ethnode.New(
		ethnode.WithDriver(sim),
		ethnode.WithStaticAddress(
			netip.MustParseAddr("192.168.0.223"),
			netip.MustParseAddr("255.255.255.0"),
			netip.MustParseAddr("192.168.0.1"),
		),
		ethnode.WithListenAddr("127.0.0.1:8000"),
		ethnode.WithAnnounce(true),
		ethnode.WithLogger(logger),
		ethnode.WithListenCallback(func(addr net.Addr) {
			fmt.Println()
			fmt.Println("  ethnode demo")
			fmt.Printf("  Open http://%s/api/hello\n", addr)
			fmt.Println("  Press Ctrl+C to stop")
			fmt.Println()
		}),
	)
	if err != nil {
		slog.Error("failed to create node", "error", err)
		os.Exit(1)
	}

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go GenerateTraffic(ctx, sim, 50*time.Millisecond)

	if err := node.Start(ctx); err != nil {
		slog.Error("node error", "error", err)
		os.Exit(1)
	}
}
