package netif

import (
	"errors"
	"fmt"
	"net/netip"
)

const (
	// HeaderLen is the Ethernet II header size.
	HeaderLen = 14

	// MaxFrameLen is the largest frame accepted on ingestion (1500 MTU,
	// 14 byte header, one 802.1Q tag).
	MaxFrameLen = 1518
)

// ErrInvalidTransition is returned when an event does not match an edge of
// the state machine. The interface state is left unchanged.
var ErrInvalidTransition = errors.New("invalid interface state transition")

// Addresses holds the IPv4 configuration of an interface.
// The zero value means "not assigned".
type Addresses struct {
	IP      netip.Addr
	Netmask netip.Addr
	Gateway netip.Addr
}

// Valid reports whether an IPv4 address is set.
func (a Addresses) Valid() bool {
	return a.IP.Is4() && !a.IP.IsUnspecified()
}

// Config describes an interface at creation time.
type Config struct {
	// Name is used in logs only.
	Name string

	// MAC must be a unicast, non-zero address.
	MAC MAC

	// Static, when it carries an IP, selects static addressing and the
	// interface skips address acquisition. Otherwise addressing is dynamic.
	Static Addresses
}

// Interface is the single-owner state object for one network attachment.
type Interface struct {
	name   string
	mac    MAC
	static bool
	addr   Addresses
	state  State

	nrecv uint64
	nsent uint64
	ndrop uint64
	nerr  uint64

	onChange func(from, to State)
}

// New creates an interface in [StateDown].
func New(cfg Config) (*Interface, error) {
	if cfg.MAC.IsZero() {
		return nil, errors.New("hardware address is required")
	}
	if cfg.MAC.Multicast() {
		return nil, fmt.Errorf("hardware address %s is multicast", cfg.MAC)
	}
	static := cfg.Static.Valid()
	if !static && cfg.Static != (Addresses{}) {
		return nil, errors.New("static addressing requires an IPv4 address")
	}
	name := cfg.Name
	if name == "" {
		name = "eth0"
	}
	return &Interface{
		name:   name,
		mac:    cfg.MAC,
		static: static,
		addr:   cfg.Static,
		state:  StateDown,
	}, nil
}

// OnChange registers fn to be called after every state transition.
func (i *Interface) OnChange(fn func(from, to State)) {
	i.onChange = fn
}

func (i *Interface) Name() string         { return i.name }
func (i *Interface) MAC() MAC             { return i.mac }
func (i *Interface) State() State         { return i.state }
func (i *Interface) Static() bool         { return i.static }
func (i *Interface) Addresses() Addresses { return i.addr }

// LinkUp handles a physical link-up signal. Only valid from [StateDown];
// a repeated link-up while the link is already up is a no-op.
func (i *Interface) LinkUp() error {
	if i.state != StateDown {
		return nil
	}
	return i.transition(StateUp)
}

// LinkDown handles a physical link-down signal from any state. Dynamically
// acquired addresses are forgotten; counters are kept.
func (i *Interface) LinkDown() error {
	if i.state == StateDown {
		return nil
	}
	if !i.static {
		i.addr = Addresses{}
	}
	return i.transition(StateDown)
}

// RequestAddress moves a dynamically addressed interface from up to req.
func (i *Interface) RequestAddress() error {
	return i.transition(StateRequested)
}

// Ready completes bring-up of a statically addressed interface.
func (i *Interface) Ready() error {
	if !i.static {
		return fmt.Errorf("%w: dynamic interface needs an acquired address", ErrInvalidTransition)
	}
	return i.transition(StateReady)
}

// Bind installs an acquired address and moves req -> ready.
func (i *Interface) Bind(a Addresses) error {
	if i.static {
		return fmt.Errorf("%w: static interface does not acquire addresses", ErrInvalidTransition)
	}
	if !a.Valid() {
		return fmt.Errorf("cannot bind invalid address %v", a.IP)
	}
	if err := i.check(StateReady); err != nil {
		return err
	}
	i.addr = a
	return i.transition(StateReady)
}

func (i *Interface) check(to State) error {
	if !validEdge(i.state, to, i.static) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.state, to)
	}
	return nil
}

func (i *Interface) transition(to State) error {
	if err := i.check(to); err != nil {
		return err
	}
	from := i.state
	i.state = to
	if i.onChange != nil {
		i.onChange(from, to)
	}
	return nil
}

// RecordRx accounts for one inbound frame. Frames outside the Ethernet size
// limits are counted as dropped and false is returned.
func (i *Interface) RecordRx(frame []byte) bool {
	if len(frame) < HeaderLen || len(frame) > MaxFrameLen {
		i.ndrop++
		return false
	}
	i.nrecv++
	return true
}

// RecordDrop counts a frame discarded before protocol processing.
func (i *Interface) RecordDrop() {
	i.ndrop++
}

// RecordTx accounts for one outbound frame attempt.
func (i *Interface) RecordTx(err error) {
	if err != nil {
		i.nerr++
		return
	}
	i.nsent++
}

// RecordError counts a transport-level error.
func (i *Interface) RecordError() {
	i.nerr++
}

// Counters are cumulative traffic totals.
type Counters struct {
	Received uint64
	Sent     uint64
	Dropped  uint64
	Errors   uint64
}

// Snapshot is a point-in-time copy of an interface, safe to hand to other
// goroutines.
type Snapshot struct {
	Name      string
	MAC       MAC
	State     State
	Static    bool
	Addresses Addresses
	Counters  Counters
}

// Snapshot copies the current state and counters.
func (i *Interface) Snapshot() Snapshot {
	return Snapshot{
		Name:      i.name,
		MAC:       i.mac,
		State:     i.state,
		Static:    i.static,
		Addresses: i.addr,
		Counters: Counters{
			Received: i.nrecv,
			Sent:     i.nsent,
			Dropped:  i.ndrop,
			Errors:   i.nerr,
		},
	}
}
