// Package poller is the single-goroutine event loop that drives all
// networking of a node.
//
// A [Manager] owns one interface, its driver, a set of timers and every HTTP
// connection. Nothing happens unless [Manager.Poll] is called: each call
// handles pending connection events, samples the link, advances address
// acquisition, ingests frames and fires due timers, then returns.
//
// Socket reads and request parsing run on helper goroutines, but they only
// forward [Event] values through a bounded queue. Connection state,
// interface state, counters and handlers are touched exclusively by the
// goroutine calling Poll, which is why none of them need locks.
//
// The main components are:
//
//   - [Manager]: the poller, listener and connection table
//   - [Timer]: periodic or one-shot callbacks run by Poll
//   - [Conn], [Event], [Handler]: per-connection dispatch
//   - [Manager.WaitUntilReady]: the startup readiness gate
package poller
