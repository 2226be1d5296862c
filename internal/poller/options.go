package poller

import (
	"log/slog"
	"time"

	"github.com/jpalmerr/ethnode/internal/lease"
)

const (
	defaultMaxConnections    = 8
	defaultLinkCheckInterval = time.Second
	defaultAcquireRetry      = time.Second
	defaultWriteTimeout      = time.Second
	defaultIdleTimeout       = 30 * time.Second
)

// Option configures a [Manager] at construction.
type Option func(*Manager)

// WithAcquirer sets the address source for dynamically addressed
// interfaces. Required unless the interface is statically configured.
func WithAcquirer(a lease.Acquirer) Option {
	return func(m *Manager) { m.acq = a }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMaxConnections caps the connection table. Connections accepted while
// the table is full are closed immediately. Defaults to 8.
func WithMaxConnections(n int) Option {
	return func(m *Manager) { m.maxConns = n }
}

// WithLinkCheckInterval sets how often the driver's link status is sampled.
// Zero samples on every poll. Defaults to 1s.
func WithLinkCheckInterval(d time.Duration) Option {
	return func(m *Manager) { m.linkEvery = d }
}

// WithAcquireRetry sets the minimum time between acquisition attempts.
// Defaults to 1s.
func WithAcquireRetry(d time.Duration) Option {
	return func(m *Manager) { m.acquireEvery = d }
}

// WithAnnounce sends a gratuitous ARP each time the interface becomes ready.
func WithAnnounce(enabled bool) Option {
	return func(m *Manager) { m.announce = enabled }
}

// WithFrameHandler passes every accepted inbound frame to fn, on the
// polling goroutine. The slice is only valid for the duration of the call.
func WithFrameHandler(fn func(frame []byte)) Option {
	return func(m *Manager) { m.onFrame = fn }
}

// WithWriteTimeout bounds each reply write, and so how long a peer that
// stops reading can hold the polling goroutine. Defaults to 1s.
func WithWriteTimeout(d time.Duration) Option {
	return func(m *Manager) { m.writeTimeout = d }
}

// WithIdleTimeout closes a connection that has not delivered a complete
// request within d of being accepted or of its previous request.
// Defaults to 30s.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}
