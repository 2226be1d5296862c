// Package lease acquires a dynamic IPv4 configuration for an interface.
//
// The poller calls an [Acquirer] while the interface sits in the "req"
// state, at most once per retry interval. Acquirers must not block for
// long: they either return an address or [ErrPending].
package lease

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/jackpal/gateway"

	"github.com/jpalmerr/ethnode/internal/netif"
)

// ErrPending means no address is available yet; the caller retries later.
var ErrPending = errors.New("address acquisition pending")

// Acquirer produces an address for an interface in the "req" state.
type Acquirer interface {
	Acquire() (netif.Addresses, error)
}

// AcquirerFunc adapts a plain function to [Acquirer].
type AcquirerFunc func() (netif.Addresses, error)

func (f AcquirerFunc) Acquire() (netif.Addresses, error) { return f() }

// HostAcquirer takes the address the host OS already holds on an interface
// and the host's default gateway. It stands in for a DHCP client when the
// node runs on a general purpose machine.
type HostAcquirer struct {
	name string

	// swapped in tests
	interfaces      func() ([]net.Interface, error)
	addrs           func(net.Interface) ([]net.Addr, error)
	discoverGateway func() (net.IP, error)
}

// NewHostAcquirer returns an acquirer for the named host interface. An
// empty name selects the first up, non-loopback interface with IPv4.
func NewHostAcquirer(name string) *HostAcquirer {
	return &HostAcquirer{
		name:            name,
		interfaces:      net.Interfaces,
		addrs:           func(ifi net.Interface) ([]net.Addr, error) { return ifi.Addrs() },
		discoverGateway: gateway.DiscoverGateway,
	}
}

// Acquire returns the interface's first IPv4 address and netmask, plus the
// default gateway when one can be discovered.
func (h *HostAcquirer) Acquire() (netif.Addresses, error) {
	ifaces, err := h.interfaces()
	if err != nil {
		return netif.Addresses{}, fmt.Errorf("failed to list interfaces: %w", err)
	}

	for _, ifi := range ifaces {
		if h.name != "" && ifi.Name != h.name {
			continue
		}
		if h.name == "" && (ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0) {
			continue
		}

		addrs, err := h.addrs(ifi)
		if err != nil {
			return netif.Addresses{}, fmt.Errorf("failed to read addresses of %q: %w", ifi.Name, err)
		}
		a, ok := firstIPv4(addrs)
		if !ok {
			continue
		}

		if gw, err := h.discoverGateway(); err == nil {
			if g, ok := netip.AddrFromSlice(gw.To4()); ok {
				a.Gateway = g
			}
		}
		return a, nil
	}

	if h.name != "" {
		return netif.Addresses{}, fmt.Errorf("%w: %q has no IPv4 address", ErrPending, h.name)
	}
	return netif.Addresses{}, fmt.Errorf("%w: no interface with an IPv4 address", ErrPending)
}

func firstIPv4(addrs []net.Addr) (netif.Addresses, bool) {
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil || ip4.IsUnspecified() {
			continue
		}
		mask := ipnet.Mask
		if len(mask) == net.IPv6len {
			mask = mask[12:]
		}
		ip, _ := netip.AddrFromSlice(ip4)
		nm, ok := netip.AddrFromSlice(net.IP(mask))
		if !ok {
			continue
		}
		return netif.Addresses{IP: ip, Netmask: nm}, true
	}
	return netif.Addresses{}, false
}
