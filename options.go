package ethnode

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/jpalmerr/ethnode/internal/driver"
	"github.com/jpalmerr/ethnode/internal/hal"
	"github.com/jpalmerr/ethnode/internal/lease"
	"github.com/jpalmerr/ethnode/internal/netif"
)

// MAC is a 6-byte hardware address.
type MAC = netif.MAC

// Addresses are the IPv4 address, netmask and gateway of the interface.
type Addresses = netif.Addresses

// Driver is the Ethernet driver the node polls for link state and frames.
type Driver = driver.Driver

// Acquirer supplies addresses to a dynamically addressed interface.
type Acquirer = lease.Acquirer

// LED is the status output toggled by the blink task.
type LED = hal.LED

// nodeConfig holds mutable state during Node construction.
type nodeConfig struct {
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

// Option is a function that configures a [Node] during construction.
// Options return an error if validation fails.
type Option func(*nodeConfig) error

// WithInterfaceName names the interface. Defaults to "eth0". With the
// default acquirer, the name also selects the host interface whose address
// is adopted.
func WithInterfaceName(name string) Option {
	return func(cfg *nodeConfig) error {
		if name == "" {
			return errors.New("interface name cannot be empty")
		}
		cfg.name = name
		return nil
	}
}

// WithMAC sets the hardware address. When unset, a locally administered
// address is generated from the entropy source at start.
func WithMAC(mac MAC) Option {
	return func(cfg *nodeConfig) error {
		if mac.IsZero() || mac.Multicast() {
			return errors.New("mac must be a non-zero unicast address")
		}
		cfg.mac = mac
		return nil
	}
}

// WithStaticAddress configures static addressing. Without it the node
// uses dynamic addressing through its [Acquirer].
func WithStaticAddress(ip, netmask, gateway netip.Addr) Option {
	return func(cfg *nodeConfig) error {
		a := Addresses{IP: ip, Netmask: netmask, Gateway: gateway}
		if !a.Valid() || !netmask.Is4() || !gateway.Is4() {
			return errors.New("static address requires IPv4 ip, netmask and gateway")
		}
		cfg.static = a
		return nil
	}
}

// WithDriver sets the Ethernet driver. Defaults to a simulated driver
// whose link is up.
func WithDriver(d Driver) Option {
	return func(cfg *nodeConfig) error {
		if d == nil {
			return errors.New("driver cannot be nil")
		}
		cfg.driver = d
		return nil
	}
}

// WithAcquirer sets the address source for dynamic addressing. Defaults
// to adopting the host's own address for the interface name.
func WithAcquirer(a Acquirer) Option {
	return func(cfg *nodeConfig) error {
		if a == nil {
			return errors.New("acquirer cannot be nil")
		}
		cfg.acquirer = a
		return nil
	}
}

// WithEntropy sets the random source for MAC generation. Defaults to
// crypto/rand.
func WithEntropy(r io.Reader) Option {
	return func(cfg *nodeConfig) error {
		if r == nil {
			return errors.New("entropy source cannot be nil")
		}
		cfg.entropy = r
		return nil
	}
}

// WithLED sets the status LED. Defaults to an LED that only logs.
func WithLED(led LED) Option {
	return func(cfg *nodeConfig) error {
		if led == nil {
			return errors.New("led cannot be nil")
		}
		cfg.led = led
		return nil
	}
}

// WithListenAddr sets the HTTP listen address. Defaults to "0.0.0.0:80".
// Port 0 picks a free port; see [WithListenCallback].
func WithListenAddr(addr string) Option {
	return func(cfg *nodeConfig) error {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return errors.New("listen address must be host:port")
		}
		cfg.listenAddr = addr
		return nil
	}
}

// WithStatsInterval sets how often the stats line is logged. Defaults to
// one second.
func WithStatsInterval(d time.Duration) Option {
	return func(cfg *nodeConfig) error {
		if d <= 0 {
			return errors.New("stats interval must be positive")
		}
		cfg.statsInterval = d
		return nil
	}
}

// WithBlinkPeriod sets the time between LED toggles. Defaults to one
// second.
func WithBlinkPeriod(d time.Duration) Option {
	return func(cfg *nodeConfig) error {
		if d <= 0 {
			return errors.New("blink period must be positive")
		}
		cfg.blinkPeriod = d
		return nil
	}
}

// WithMaxConnections bounds the HTTP connection table. Defaults to 8.
func WithMaxConnections(n int) Option {
	return func(cfg *nodeConfig) error {
		if n <= 0 {
			return errors.New("max connections must be positive")
		}
		cfg.maxConns = n
		return nil
	}
}

// WithLinkCheckInterval sets how often link state is sampled. Zero samples
// on every poll. Defaults to one second.
func WithLinkCheckInterval(d time.Duration) Option {
	return func(cfg *nodeConfig) error {
		if d < 0 {
			return errors.New("link check interval cannot be negative")
		}
		cfg.linkEvery = d
		return nil
	}
}

// WithAnnounce sends a gratuitous ARP when the interface becomes ready.
func WithAnnounce(enabled bool) Option {
	return func(cfg *nodeConfig) error {
		cfg.announce = enabled
		return nil
	}
}

// WithAcquireRetry sets the minimum time between address acquisition
// attempts while dynamic addressing is pending. Zero retries on every
// poll. Defaults to one second.
func WithAcquireRetry(d time.Duration) Option {
	return func(cfg *nodeConfig) error {
		if d < 0 {
			return errors.New("acquire retry cannot be negative")
		}
		cfg.acquireEvery = d
		return nil
	}
}

// WithWriteTimeout bounds each HTTP reply write. Replies are written on
// the polling goroutine, so this is the longest a stalled peer can hold up
// the node. Defaults to one second.
func WithWriteTimeout(d time.Duration) Option {
	return func(cfg *nodeConfig) error {
		if d <= 0 {
			return errors.New("write timeout must be positive")
		}
		cfg.writeTimeout = d
		return nil
	}
}

// WithIdleTimeout closes connections that send no complete request for d.
// Defaults to 30 seconds.
func WithIdleTimeout(d time.Duration) Option {
	return func(cfg *nodeConfig) error {
		if d <= 0 {
			return errors.New("idle timeout must be positive")
		}
		cfg.idleTimeout = d
		return nil
	}
}

// WithFrameHandler passes every accepted inbound frame to fn. It runs on
// the server task, must not block, and must not keep the slice.
func WithFrameHandler(fn func(frame []byte)) Option {
	return func(cfg *nodeConfig) error {
		if fn == nil {
			return errors.New("frame handler cannot be nil")
		}
		cfg.onFrame = fn
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified,
// [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *nodeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithListenCallback registers a function called with the bound listener
// address once the HTTP listener is attached. It runs on the server task
// and must not block.
//
// Nil callbacks are silently ignored.
func WithListenCallback(cb func(net.Addr)) Option {
	return func(cfg *nodeConfig) error {
		if cb == nil {
			return nil
		}
		cfg.onListen = append(cfg.onListen, cb)
		return nil
	}
}
