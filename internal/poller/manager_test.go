package poller

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/jpalmerr/ethnode/internal/driver"
	"github.com/jpalmerr/ethnode/internal/lease"
	"github.com/jpalmerr/ethnode/internal/netif"
)

func mustAddr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}

func TestNew_Validation(t *testing.T) {
	acq := lease.AcquirerFunc(func() (netif.Addresses, error) { return netif.Addresses{}, lease.ErrPending })

	tests := []struct {
		name    string
		ifp     func(*testing.T) *netif.Interface
		opts    []Option
		wantErr bool
	}{
		{"static without acquirer", staticInterface, nil, false},
		{"dynamic with acquirer", dynamicInterface, []Option{WithAcquirer(acq)}, false},
		{"dynamic without acquirer", dynamicInterface, nil, true},
		{"zero max connections", staticInterface, []Option{WithMaxConnections(0)}, true},
		{"negative link check", staticInterface, []Option{WithLinkCheckInterval(-time.Second)}, true},
		{"zero write timeout", staticInterface, []Option{WithWriteTimeout(0)}, true},
		{"zero idle timeout", staticInterface, []Option{WithIdleTimeout(0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithLogger(testLogger())}, tt.opts...)
			m, err := New(tt.ifp(t), driver.NewSim(true), opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if m != nil {
				_ = m.Close()
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	m, _ := newTestManager(t, staticInterface(t), driver.NewSim(true))

	if m.maxConns != 8 {
		t.Errorf("maxConns = %d, want 8", m.maxConns)
	}
	// a reply write holds the polling goroutine for at most this long
	if m.writeTimeout != time.Second {
		t.Errorf("writeTimeout = %v, want 1s", m.writeTimeout)
	}
	if m.idleTimeout != 30*time.Second {
		t.Errorf("idleTimeout = %v, want 30s", m.idleTimeout)
	}
	if m.acquireEvery != time.Second {
		t.Errorf("acquireEvery = %v, want 1s", m.acquireEvery)
	}
}

func TestNew_InitialisesDriver(t *testing.T) {
	sim := driver.NewSim(false)
	newTestManager(t, staticInterface(t), sim)

	if sim.MAC() != testMAC {
		t.Errorf("driver MAC = %s, want %s", sim.MAC(), testMAC)
	}
}

func TestPoll_StaticBringUp(t *testing.T) {
	sim := driver.NewSim(false)
	m, _ := newTestManager(t, staticInterface(t), sim)

	m.Poll(0)
	if got := m.Interface().State(); got != netif.StateDown {
		t.Fatalf("State() with link down = %v, want down", got)
	}

	sim.SetLink(true)
	m.Poll(0)
	if got := m.Interface().State(); got != netif.StateReady {
		t.Errorf("State() after link up = %v, want ready", got)
	}
}

func TestPoll_DynamicBringUp(t *testing.T) {
	sim := driver.NewSim(true)
	want := netif.Addresses{IP: mustAddr("10.0.0.9"), Netmask: mustAddr("255.255.255.0")}
	acq, calls := pendingThen(2, want)
	m, clk := newTestManager(t, dynamicInterface(t), sim, WithAcquirer(acq), WithAcquireRetry(time.Second))

	m.Poll(0)
	if got := m.Interface().State(); got != netif.StateRequested {
		t.Fatalf("State() = %v, want req", got)
	}
	if *calls != 1 {
		t.Fatalf("acquire calls = %d, want 1", *calls)
	}

	// retries are rate limited
	m.Poll(0)
	if *calls != 1 {
		t.Errorf("acquire calls before retry interval = %d, want 1", *calls)
	}

	clk.Advance(time.Second)
	m.Poll(0)
	clk.Advance(time.Second)
	m.Poll(0)

	if got := m.Interface().State(); got != netif.StateReady {
		t.Fatalf("State() = %v, want ready", got)
	}
	if m.Interface().Addresses() != want {
		t.Errorf("Addresses() = %+v, want %+v", m.Interface().Addresses(), want)
	}
}

func TestPoll_LinkCheckInterval(t *testing.T) {
	sim := driver.NewSim(true)
	m, clk := newTestManager(t, staticInterface(t), sim, WithLinkCheckInterval(time.Second))

	m.Poll(0)
	if m.Interface().State() != netif.StateReady {
		t.Fatalf("State() = %v, want ready", m.Interface().State())
	}

	sim.SetLink(false)
	clk.Advance(500 * time.Millisecond)
	m.Poll(0)
	if m.Interface().State() != netif.StateReady {
		t.Errorf("link sampled before interval elapsed")
	}

	clk.Advance(500 * time.Millisecond)
	m.Poll(0)
	if m.Interface().State() != netif.StateDown {
		t.Errorf("State() = %v, want down after link check", m.Interface().State())
	}
}

func TestPoll_LinkFlapKeepsCounters(t *testing.T) {
	sim := driver.NewSim(true)
	acq, _ := pendingThen(0, netif.Addresses{IP: mustAddr("10.0.0.9")})
	m, _ := newTestManager(t, dynamicInterface(t), sim, WithAcquirer(acq), WithAcquireRetry(0))

	m.Poll(0)
	m.Poll(0)
	sim.Inject(make([]byte, 60))
	m.Poll(0)

	for i := 0; i < 3; i++ {
		sim.SetLink(false)
		m.Poll(0)
		if m.Interface().State() != netif.StateDown {
			t.Fatalf("flap %d: State() = %v, want down", i, m.Interface().State())
		}
		sim.SetLink(true)
		m.Poll(0)
		m.Poll(0)
		if m.Interface().State() != netif.StateReady {
			t.Fatalf("flap %d: State() = %v, want ready", i, m.Interface().State())
		}
	}

	if got := m.Interface().Snapshot().Counters.Received; got != 1 {
		t.Errorf("Received = %d, want 1", got)
	}
}

func TestPoll_IngestsFrames(t *testing.T) {
	sim := driver.NewSim(true)
	var handled int
	m, _ := newTestManager(t, staticInterface(t), sim, WithFrameHandler(func(frame []byte) {
		handled++
	}))

	sim.Inject(make([]byte, 60))
	sim.Inject(make([]byte, 3))    // runt
	sim.Inject(make([]byte, 1600)) // oversized
	sim.Inject(make([]byte, 1514))
	m.Poll(0)

	c := m.Interface().Snapshot().Counters
	if c.Received != 2 || c.Dropped != 2 {
		t.Errorf("Counters = %+v, want Received 2, Dropped 2", c)
	}
	if handled != 2 {
		t.Errorf("frame handler called %d times, want 2", handled)
	}
}

func TestPoll_IngestBudget(t *testing.T) {
	sim := driver.NewSim(true)
	m, _ := newTestManager(t, staticInterface(t), sim)

	for i := 0; i < rxBudget+5; i++ {
		sim.Inject(make([]byte, 60))
	}
	m.Poll(0)
	if got := m.Interface().Snapshot().Counters.Received; got != rxBudget {
		t.Errorf("Received after one poll = %d, want %d", got, rxBudget)
	}
	m.Poll(0)
	if got := m.Interface().Snapshot().Counters.Received; got != rxBudget+5 {
		t.Errorf("Received after two polls = %d, want %d", got, rxBudget+5)
	}
}

func TestPoll_ZeroTimeoutReturnsPromptly(t *testing.T) {
	sim := driver.NewSim(true)
	m, _ := newTestManager(t, staticInterface(t), sim)
	m.AddTimer(time.Hour, TimerRepeat, func() {})

	start := time.Now()
	for i := 0; i < 1000; i++ {
		m.Poll(0)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("1000 idle Poll(0) calls took %v", elapsed)
	}
}

func TestPoll_TimeoutBoundsWait(t *testing.T) {
	sim := driver.NewSim(true)
	m, err := New(staticInterface(t), sim, WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	start := time.Now()
	m.Poll(20 * time.Millisecond)
	elapsed := time.Since(start)
	if elapsed < 15*time.Millisecond || elapsed > time.Second {
		t.Errorf("Poll(20ms) took %v", elapsed)
	}
}

func TestSend_CountsFrames(t *testing.T) {
	sim := driver.NewSim(true)
	m, _ := newTestManager(t, staticInterface(t), sim)

	if err := m.Send(make([]byte, 60)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	sim.FailTx(errors.New("tx ring full"))
	if err := m.Send(make([]byte, 60)); err == nil {
		t.Error("Send() expected error, got nil")
	}

	c := m.Interface().Snapshot().Counters
	if c.Sent != 1 || c.Errors != 1 {
		t.Errorf("Counters = %+v, want Sent 1, Errors 1", c)
	}
}

func TestAnnounceOnReady(t *testing.T) {
	sim := driver.NewSim(true)
	m, _ := newTestManager(t, staticInterface(t), sim, WithAnnounce(true))

	m.Poll(0)
	if len(sim.Sent()) != 1 {
		t.Fatalf("frames sent = %d, want 1", len(sim.Sent()))
	}
	if got := m.Interface().Snapshot().Counters.Sent; got != 1 {
		t.Errorf("Sent = %d, want 1", got)
	}
}

func TestNoAnnounceByDefault(t *testing.T) {
	sim := driver.NewSim(true)
	m, _ := newTestManager(t, staticInterface(t), sim)

	m.Poll(0)
	if len(sim.Sent()) != 0 {
		t.Errorf("frames sent = %d, want 0", len(sim.Sent()))
	}
}

func TestClose_Idempotent(t *testing.T) {
	sim := driver.NewSim(true)
	m, _ := newTestManager(t, staticInterface(t), sim)

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := m.Listen("127.0.0.1:0", func(*Conn, Event) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Listen() after Close error = %v, want ErrClosed", err)
	}
	// must not block or panic
	m.Poll(time.Second)
}
