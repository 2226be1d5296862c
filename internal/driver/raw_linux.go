//go:build linux

package driver

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/jpalmerr/ethnode/internal/netif"
)

// Raw sends and receives whole Ethernet frames on a host interface through a
// non-blocking AF_PACKET socket. It needs CAP_NET_RAW.
type Raw struct {
	name string
	fd   int
	addr *unix.SockaddrLinklayer
}

// NewRaw returns a driver for the named host interface. The socket is
// opened by Init.
func NewRaw(name string) *Raw {
	return &Raw{name: name, fd: -1}
}

func (r *Raw) Init(mac netif.MAC) error {
	ifi, err := net.InterfaceByName(r.name)
	if err != nil {
		return fmt.Errorf("failed to look up interface %q: %w", r.name, err)
	}

	proto := htons(unix.ETH_P_ALL)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, int(proto))
	if err != nil {
		return fmt.Errorf("failed to open packet socket: %w", err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  ifi.Index,
		Halen:    6,
	}
	copy(addr.Addr[:], mac[:])
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("failed to bind packet socket to %q: %w", r.name, err)
	}

	r.fd = fd
	r.addr = addr
	return nil
}

func (r *Raw) Up() bool {
	ifi, err := net.InterfaceByName(r.name)
	if err != nil {
		return false
	}
	return ifi.Flags&net.FlagUp != 0 && ifi.Flags&net.FlagRunning != 0
}

func (r *Raw) Rx(buf []byte) (int, error) {
	if r.fd < 0 {
		return 0, errors.New("raw driver not initialised")
	}
	n, _, err := unix.Recvfrom(r.fd, buf, unix.MSG_DONTWAIT)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (r *Raw) Tx(frame []byte) (int, error) {
	if r.fd < 0 {
		return 0, errors.New("raw driver not initialised")
	}
	if err := unix.Sendto(r.fd, frame, 0, r.addr); err != nil {
		return 0, err
	}
	return len(frame), nil
}

func (r *Raw) Close() error {
	if r.fd < 0 {
		return nil
	}
	err := unix.Close(r.fd)
	r.fd = -1
	return err
}

var _ Driver = (*Raw)(nil)

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}
