package netif

import (
	"encoding/binary"
	"errors"
)

const (
	etherTypeARP  = 0x0806
	etherTypeIPv4 = 0x0800
	arpFrameLen   = HeaderLen + 28
)

// Announcement builds a gratuitous ARP request for the interface's bound
// IPv4 address, broadcast from its hardware address.
func (i *Interface) Announcement() ([]byte, error) {
	if i.state != StateReady || !i.addr.Valid() {
		return nil, errors.New("interface has no address to announce")
	}
	ip := i.addr.IP.As4()

	f := make([]byte, arpFrameLen)
	copy(f[0:6], Broadcast[:])
	copy(f[6:12], i.mac[:])
	binary.BigEndian.PutUint16(f[12:14], etherTypeARP)

	a := f[HeaderLen:]
	binary.BigEndian.PutUint16(a[0:2], 1) // ethernet
	binary.BigEndian.PutUint16(a[2:4], etherTypeIPv4)
	a[4] = 6
	a[5] = 4
	binary.BigEndian.PutUint16(a[6:8], 1) // request
	copy(a[8:14], i.mac[:])
	copy(a[14:18], ip[:])
	// target hardware address stays zero
	copy(a[24:28], ip[:])
	return f, nil
}
