// Package driver defines the boundary between the event poller and an
// Ethernet MAC/PHY.
//
// A [Driver] is polled, never blocks, and is only ever called from the
// poller goroutine. Two implementations are provided: [Sim], an in-memory
// link for hosts without dedicated hardware and for tests, and [Raw], a Linux
// AF_PACKET socket bound to one host interface.
package driver

import (
	"errors"

	"github.com/jpalmerr/ethnode/internal/netif"
)

// ErrUnsupported is returned by drivers that cannot run on this platform.
var ErrUnsupported = errors.New("driver not supported on this platform")

// Driver is a polled Ethernet device.
type Driver interface {
	// Init prepares the device to send and receive as mac.
	Init(mac netif.MAC) error

	// Up reports the physical link status.
	Up() bool

	// Rx copies one pending frame into buf. It returns 0, nil when no frame
	// is waiting and must not block.
	Rx(buf []byte) (int, error)

	// Tx transmits one frame.
	Tx(frame []byte) (int, error)

	// Close releases the device.
	Close() error
}
