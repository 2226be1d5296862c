// Package netif models a single network attachment: its link state machine,
// hardware and network addresses, and cumulative traffic counters.
//
// An [Interface] is owned by exactly one event poller. All mutation and all
// reads happen on that poller's goroutine, so the type carries no locks.
// Observers on other goroutines must be handed a [Snapshot] by the owner.
//
// State progresses along the edges
//
//	down -> up -> req -> ready     (dynamic addressing)
//	down -> up -> ready            (static addressing)
//	any  -> down                   (physical link loss)
//
// Counters survive link loss; they are cumulative for the process lifetime.
package netif
