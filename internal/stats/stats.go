// Package stats formats the periodic interface report.
package stats

import (
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/jpalmerr/ethnode/internal/netif"
)

// Line renders snap as a single report line, for example
//
//	Ethernet: ready, IP: 192.168.0.223, rx:4, tx:2, dr:0, er:0
//
// An unset address prints as 0.0.0.0.
func Line(snap netif.Snapshot) string {
	ip := snap.Addresses.IP
	if !ip.IsValid() {
		ip = netip.IPv4Unspecified()
	}
	return fmt.Sprintf("Ethernet: %s, IP: %s, rx:%d, tx:%d, dr:%d, er:%d",
		snap.State, ip,
		snap.Counters.Received, snap.Counters.Sent,
		snap.Counters.Dropped, snap.Counters.Errors,
	)
}

// Reporter returns a timer callback that logs the current line for ifp at
// info level. It must run on the goroutine that owns ifp.
func Reporter(ifp *netif.Interface, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}
	return func() {
		logger.Info(Line(ifp.Snapshot()))
	}
}
