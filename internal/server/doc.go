// Package server maps HTTP requests received by the event poller to
// responses describing the node's network interface.
//
// Routes, matched on the exact request path regardless of method:
//
//   - /api/hello: live interface state and counters as JSON
//   - /: the embedded welcome page
//   - anything else: 404 with a plain-text body
//
// [Dispatch] is a pure function of path and interface snapshot. [Handler]
// adapts it to poller connection events, taking a fresh snapshot of the
// owned interface for every request.
package server
