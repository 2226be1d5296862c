package netif

import (
	"fmt"
	"io"
	"net"
)

// MAC is a 6-byte Ethernet hardware address.
type MAC [6]byte

// Broadcast is the Ethernet broadcast address.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// GenerateMAC returns a locally administered unicast address whose first
// octet is 0x02 and whose remaining octets come from r.
func GenerateMAC(r io.Reader) (MAC, error) {
	var m MAC
	if _, err := io.ReadFull(r, m[1:]); err != nil {
		return MAC{}, fmt.Errorf("failed to read entropy: %w", err)
	}
	m[0] = 0x02
	return m, nil
}

// ParseMAC parses a colon or dash separated 48-bit address.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, err
	}
	if len(hw) != 6 {
		return MAC{}, fmt.Errorf("hardware address %q is not 6 bytes", s)
	}
	var m MAC
	copy(m[:], hw)
	return m, nil
}

// IsZero reports whether the address is all zeroes (unset).
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// LocallyAdministered reports whether the U/L bit is set.
func (m MAC) LocallyAdministered() bool {
	return m[0]&0x02 != 0
}

// Multicast reports whether the I/G bit is set.
func (m MAC) Multicast() bool {
	return m[0]&0x01 != 0
}

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}
