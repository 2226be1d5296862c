package poller

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/ethnode/internal/driver"
	"github.com/jpalmerr/ethnode/internal/lease"
	"github.com/jpalmerr/ethnode/internal/netif"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testMAC = netif.MAC{0x02, 0xaa, 0xbb, 0xcc, 0xdd, 0xee}

// fakeClock is advanced by hand so timer and link-check timing is exact.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func staticInterface(t *testing.T) *netif.Interface {
	t.Helper()
	ifp, err := netif.New(netif.Config{
		MAC: testMAC,
		Static: netif.Addresses{
			IP:      mustAddr("192.168.0.223"),
			Netmask: mustAddr("255.255.255.0"),
			Gateway: mustAddr("192.168.0.1"),
		},
	})
	if err != nil {
		t.Fatalf("netif.New() error = %v", err)
	}
	return ifp
}

func dynamicInterface(t *testing.T) *netif.Interface {
	t.Helper()
	ifp, err := netif.New(netif.Config{MAC: testMAC})
	if err != nil {
		t.Fatalf("netif.New() error = %v", err)
	}
	return ifp
}

// newTestManager builds a manager on a sim driver with a fake clock.
func newTestManager(t *testing.T, ifp *netif.Interface, sim *driver.Sim, opts ...Option) (*Manager, *fakeClock) {
	t.Helper()
	opts = append([]Option{WithLogger(testLogger()), WithLinkCheckInterval(0)}, opts...)
	m, err := New(ifp, sim, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	clk := newFakeClock()
	m.now = clk.Now
	t.Cleanup(func() { _ = m.Close() })
	return m, clk
}

// runLoop polls m on its own goroutine, like the server task does, until
// the returned stop function is called. stop waits for the loop to exit.
func runLoop(m *Manager) (stop func()) {
	quit := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-quit:
				return
			default:
				m.Poll(time.Millisecond)
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			<-exited
		})
	}
}

// pendingThen returns an acquirer that reports ErrPending n times and then
// hands out a fixed address.
func pendingThen(n int, a netif.Addresses) (lease.Acquirer, *int) {
	calls := 0
	return lease.AcquirerFunc(func() (netif.Addresses, error) {
		calls++
		if calls <= n {
			return netif.Addresses{}, lease.ErrPending
		}
		return a, nil
	}), &calls
}
