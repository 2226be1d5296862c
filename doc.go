// Package ethnode runs a small network appliance: one Ethernet interface,
// a two-route HTTP status service, a periodic stats log line and a
// status LED, each driven the way a microcontroller firmware would drive
// them.
//
// # Quick Start
//
// Bring up a node on the simulated driver with a static address and stop
// it on SIGINT/SIGTERM:
//
//	node, _ := ethnode.New(
//	    ethnode.WithStaticAddress(
//	        netip.MustParseAddr("192.168.0.223"),
//	        netip.MustParseAddr("255.255.255.0"),
//	        netip.MustParseAddr("192.168.0.1"),
//	    ),
//	    ethnode.WithListenAddr("127.0.0.1:8000"),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	node.Start(ctx) // blocks until ctx is cancelled
//
// # Tasks
//
// [Node.Start] creates two independent tasks of equal priority:
//
//   - blinker: toggles the LED every blink period
//   - server: brings the interface to ready, then serves HTTP and timers
//     from a single polling loop
//
// The tasks share no mutable state. Everything the server task touches
// (interface state, counters, connections, timers) is owned by its poller
// and mutated only on the server task's goroutine.
//
// # Routes
//
//   - GET /api/hello: interface state and frame counters as JSON
//   - GET /: a static welcome page
//   - anything else: 404
//
// # Architecture
//
// The internal packages are not part of the public API:
//
//   - internal/netif: interface state machine and counters
//   - internal/driver: Ethernet driver boundary (simulated and AF_PACKET)
//   - internal/lease: address acquisition for dynamic addressing
//   - internal/poller: event loop, timers, connections, readiness gate
//   - internal/server: request dispatch
//   - internal/stats: periodic stats line
//   - internal/hal: LED and entropy
//   - internal/rtos: task scheduler
//   - internal/blink: LED task
//   - web: embedded index page
package ethnode
