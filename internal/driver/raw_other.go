//go:build !linux

package driver

import "github.com/jpalmerr/ethnode/internal/netif"

// Raw is only available on Linux.
type Raw struct {
	name string
}

// NewRaw returns a driver whose Init always fails with [ErrUnsupported].
func NewRaw(name string) *Raw {
	return &Raw{name: name}
}

func (r *Raw) Init(netif.MAC) error   { return ErrUnsupported }
func (r *Raw) Up() bool               { return false }
func (r *Raw) Rx([]byte) (int, error) { return 0, ErrUnsupported }
func (r *Raw) Tx([]byte) (int, error) { return 0, ErrUnsupported }
func (r *Raw) Close() error           { return nil }
