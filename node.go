package ethnode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jpalmerr/ethnode/internal/blink"
	"github.com/jpalmerr/ethnode/internal/driver"
	"github.com/jpalmerr/ethnode/internal/hal"
	"github.com/jpalmerr/ethnode/internal/lease"
	"github.com/jpalmerr/ethnode/internal/netif"
	"github.com/jpalmerr/ethnode/internal/poller"
	"github.com/jpalmerr/ethnode/internal/rtos"
	"github.com/jpalmerr/ethnode/internal/server"
	"github.com/jpalmerr/ethnode/internal/stats"
)

const (
	defaultInterfaceName = "eth0"
	defaultListenAddr    = "0.0.0.0:80"
	defaultStatsInterval = time.Second
	defaultBlinkPeriod   = blink.DefaultPeriod
	defaultMaxConns      = 8
	defaultLinkEvery     = time.Second
	defaultAcquireEvery  = time.Second
	defaultWriteTimeout  = time.Second
	defaultIdleTimeout   = 30 * time.Second

	blinkerStackWords = 128
	serverStackWords  = 2048

	// pollTimeout bounds each wait of the main loop.
	pollTimeout = time.Millisecond
)

// Node is the device runtime. It is created with [New] and run with
// [Node.Start].
//
// The typical lifecycle is:
//
//	node, err := ethnode.New(ethnode.WithListenAddr("0.0.0.0:8000"))
//	if err != nil {
//	    slog.Error("failed to create node", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	node.Start(ctx) // blocks until context cancelled
type Node struct {
	name          string
	mac           MAC
	static        Addresses
	driver        Driver
	acquirer      Acquirer
	entropy       io.Reader
	led           LED
	listenAddr    string
	statsInterval time.Duration
	blinkPeriod   time.Duration
	maxConns      int
	linkEvery     time.Duration
	announce      bool
	acquireEvery  time.Duration
	writeTimeout  time.Duration
	idleTimeout   time.Duration
	onFrame       func([]byte)
	logger        *slog.Logger
	onListen      []func(net.Addr)
}

// New creates a [Node] with the given options.
//
// Defaults:
//   - Interface "eth0" on a simulated driver with the link up
//   - Dynamic addressing from the host's own address for that interface
//   - Generated locally administered MAC
//   - Listen address 0.0.0.0:80, at most 8 connections
//   - Stats line and LED toggle every second
//   - Reply writes bounded to one second, idle connections closed after 30s
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Node, error) {
	cfg := &nodeConfig{
		name:          defaultInterfaceName,
		listenAddr:    defaultListenAddr,
		statsInterval: defaultStatsInterval,
		blinkPeriod:   defaultBlinkPeriod,
		maxConns:      defaultMaxConns,
		linkEvery:     defaultLinkEvery,
		acquireEvery:  defaultAcquireEvery,
		writeTimeout:  defaultWriteTimeout,
		idleTimeout:   defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.driver == nil {
		cfg.driver = driver.NewSim(true)
	}
	if cfg.acquirer == nil && !cfg.static.Valid() {
		cfg.acquirer = lease.NewHostAcquirer(cfg.name)
	}
	if cfg.entropy == nil {
		cfg.entropy = hal.Entropy()
	}
	if cfg.led == nil {
		cfg.led = hal.NewLogLED(logger)
	}

	return &Node{
		name:          cfg.name,
		mac:           cfg.mac,
		static:        cfg.static,
		driver:        cfg.driver,
		acquirer:      cfg.acquirer,
		entropy:       cfg.entropy,
		led:           cfg.led,
		listenAddr:    cfg.listenAddr,
		statsInterval: cfg.statsInterval,
		blinkPeriod:   cfg.blinkPeriod,
		maxConns:      cfg.maxConns,
		linkEvery:     cfg.linkEvery,
		announce:      cfg.announce,
		acquireEvery:  cfg.acquireEvery,
		writeTimeout:  cfg.writeTimeout,
		idleTimeout:   cfg.idleTimeout,
		onFrame:       cfg.onFrame,
		logger:        logger,
		onListen:      cfg.onListen,
	}, nil
}

// Static reports whether the node uses static addressing.
func (n *Node) Static() bool {
	return n.static.Valid()
}

// ListenAddr returns the configured HTTP listen address.
func (n *Node) ListenAddr() string {
	return n.listenAddr
}

// Start runs the blinker and server tasks and blocks until ctx is
// cancelled and both have exited.
//
// The tasks are independent: an LED failure is logged and leaves the
// server running. A server failure (driver init, listen) stops the node
// and is returned.
//
// Returns nil on graceful shutdown.
func (n *Node) Start(ctx context.Context) error {
	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := rtos.NewScheduler(n.logger)
	prio := rtos.MaxPriorities - 1

	if err := sched.Create(rtos.Task{Name: "blinker", StackWords: blinkerStackWords, Priority: prio}, n.blinker); err != nil {
		return err
	}
	serverTask := func(ctx context.Context) error {
		err := n.serve(ctx)
		if err != nil && ctx.Err() == nil {
			cancel()
		}
		return err
	}
	if err := sched.Create(rtos.Task{Name: "server", StackWords: serverStackWords, Priority: prio}, serverTask); err != nil {
		return err
	}

	err := sched.Start(ctx)
	n.logger.Info("ethnode stopped")
	return err
}

// blinker is the status LED task. LED failures never stop the node, so
// the error is logged here and the task exits cleanly.
func (n *Node) blinker(ctx context.Context) error {
	err := blink.Run(ctx, n.led, n.blinkPeriod)
	if err != nil && ctx.Err() == nil {
		n.logger.Warn("status LED stopped", "error", err)
	}
	return nil
}

// serve is the server task: interface bring-up, readiness gate, listener
// and the polling loop.
func (n *Node) serve(ctx context.Context) error {
	mac := n.mac
	if mac.IsZero() {
		generated, err := netif.GenerateMAC(n.entropy)
		if err != nil {
			return fmt.Errorf("generating hardware address: %w", err)
		}
		mac = generated
	}

	ifp, err := netif.New(netif.Config{Name: n.name, MAC: mac, Static: n.static})
	if err != nil {
		return fmt.Errorf("creating interface: %w", err)
	}

	opts := []poller.Option{
		poller.WithLogger(n.logger),
		poller.WithMaxConnections(n.maxConns),
		poller.WithLinkCheckInterval(n.linkEvery),
		poller.WithAnnounce(n.announce),
		poller.WithAcquireRetry(n.acquireEvery),
		poller.WithWriteTimeout(n.writeTimeout),
		poller.WithIdleTimeout(n.idleTimeout),
	}
	if n.acquirer != nil {
		opts = append(opts, poller.WithAcquirer(n.acquirer))
	}
	if n.onFrame != nil {
		opts = append(opts, poller.WithFrameHandler(n.onFrame))
	}
	m, err := poller.New(ifp, n.driver, opts...)
	if err != nil {
		return err
	}
	defer n.shutdown(m)

	// registered before the gate so stats are logged while waiting
	m.AddTimer(n.statsInterval, poller.TimerRepeat, stats.Reporter(ifp, n.logger))

	n.logger.Info("waiting for IP", "mac", mac.String())
	if err := m.WaitUntilReady(ctx); err != nil {
		return err
	}

	n.logger.Info("initialising application")
	if err := m.Listen(n.listenAddr, server.Handler(ifp, n.logger)); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.listenAddr, err)
	}
	for _, cb := range n.onListen {
		cb(m.Addr())
	}

	n.logger.Info("starting event loop", "listen", m.Addr().String())
	for ctx.Err() == nil {
		m.Poll(pollTimeout)
	}
	return ctx.Err()
}

func (n *Node) shutdown(m *poller.Manager) {
	snap := m.Interface().Snapshot()
	st := m.Stats()
	if err := m.Close(); err != nil {
		n.logger.Warn("error closing poller", "error", err)
	}
	n.logger.Info("server task stopped",
		"state", snap.State.String(),
		"frames_received", humanize.Comma(int64(snap.Counters.Received)),
		"frames_sent", humanize.Comma(int64(snap.Counters.Sent)),
		"frames_dropped", humanize.Comma(int64(snap.Counters.Dropped)),
		"interface_errors", humanize.Comma(int64(snap.Counters.Errors)),
		"requests", humanize.Comma(int64(st.Requests)),
		"connections", humanize.Comma(int64(st.Accepted)),
	)
}
