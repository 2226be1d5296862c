package server

import (
	"log/slog"

	"github.com/jpalmerr/ethnode/internal/netif"
	"github.com/jpalmerr/ethnode/internal/poller"
)

// Handler returns the poller handler serving ifp. ifp must be the interface
// owned by the same poller, since the handler reads it on the polling
// goroutine without locking.
func Handler(ifp *netif.Interface, logger *slog.Logger) poller.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *poller.Conn, ev poller.Event) {
		switch ev.Kind {
		case poller.EventMessage:
			resp := Dispatch(ev.Message.Path, ifp.Snapshot())
			if err := c.Reply(resp.Status, resp.ContentType, resp.Body); err != nil {
				logger.Warn("failed to write response", "conn", c.ID(), "remote", c.RemoteAddr(), "error", err)
				return
			}
			logger.Debug("request served",
				"conn", c.ID(),
				"method", ev.Message.Method,
				"path", ev.Message.Path,
				"status", resp.Status,
			)

		case poller.EventError:
			logger.Debug("connection error", "conn", c.ID(), "remote", c.RemoteAddr(), "error", ev.Err)
		}
	}
}
