package netif

// State is the link/address state of an [Interface].
//
// The numeric values are stable and are what the REST API reports.
type State uint8

const (
	// StateDown means no physical link.
	StateDown State = iota

	// StateUp means the link is up but no address is usable yet.
	StateUp

	// StateRequested means an address acquisition is in flight.
	StateRequested

	// StateReady means the interface has an address and can carry traffic.
	StateReady
)

var stateNames = [...]string{"down", "up", "req", "ready"}

// String returns the short state name used in logs.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// validEdge reports whether from -> to is a legal transition.
func validEdge(from, to State, static bool) bool {
	switch to {
	case StateDown:
		return true
	case StateUp:
		return from == StateDown
	case StateRequested:
		return from == StateUp && !static
	case StateReady:
		if static {
			return from == StateUp
		}
		return from == StateRequested
	}
	return false
}
