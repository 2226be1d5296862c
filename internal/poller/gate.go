package poller

import (
	"context"
	"runtime"

	"github.com/jpalmerr/ethnode/internal/netif"
)

// WaitUntilReady polls with a zero timeout until the interface is ready.
// There is no deadline: without a link it spins until ctx is cancelled.
// It must only be used before the main loop starts.
func (m *Manager) WaitUntilReady(ctx context.Context) error {
	for m.ifp.State() != netif.StateReady {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Poll(0)
		runtime.Gosched()
	}
	return nil
}
