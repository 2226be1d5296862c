package ethnode

import (
	"bytes"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/ethnode/internal/driver"
	"github.com/jpalmerr/ethnode/internal/hal"
)

func TestNew_Defaults(t *testing.T) {
	node, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if node.ListenAddr() != "0.0.0.0:80" {
		t.Errorf("ListenAddr() = %q, want 0.0.0.0:80", node.ListenAddr())
	}
	if node.Static() {
		t.Error("Static() = true, want dynamic addressing by default")
	}
	if node.acquirer == nil {
		t.Error("dynamic node has no acquirer")
	}
	if node.driver == nil || node.led == nil || node.entropy == nil {
		t.Error("default driver, led or entropy not set")
	}
	if node.statsInterval != time.Second || node.blinkPeriod != time.Second {
		t.Errorf("intervals = %v/%v, want 1s/1s", node.statsInterval, node.blinkPeriod)
	}
	if node.maxConns != 8 {
		t.Errorf("maxConns = %d, want 8", node.maxConns)
	}
	if node.name != "eth0" {
		t.Errorf("name = %q, want eth0", node.name)
	}
	if node.acquireEvery != time.Second || node.writeTimeout != time.Second || node.idleTimeout != 30*time.Second {
		t.Errorf("acquire/write/idle = %v/%v/%v, want 1s/1s/30s", node.acquireEvery, node.writeTimeout, node.idleTimeout)
	}
}

func TestNew_StaticAddressing(t *testing.T) {
	node, err := New(WithStaticAddress(
		netip.MustParseAddr("192.168.0.223"),
		netip.MustParseAddr("255.255.255.0"),
		netip.MustParseAddr("192.168.0.1"),
	))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !node.Static() {
		t.Error("Static() = false, want true")
	}
	if node.acquirer != nil {
		t.Error("static node should not default an acquirer")
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	v4 := netip.MustParseAddr("10.0.0.2")
	mask := netip.MustParseAddr("255.0.0.0")

	tests := []struct {
		name    string
		opt     Option
		wantErr string
	}{
		{"empty interface name", WithInterfaceName(""), "interface name"},
		{"zero mac", WithMAC(MAC{}), "mac"},
		{"multicast mac", WithMAC(MAC{0x01, 0, 0x5e, 0, 0, 1}), "mac"},
		{"ipv6 static address", WithStaticAddress(netip.MustParseAddr("fe80::1"), mask, v4), "static address"},
		{"missing netmask", WithStaticAddress(v4, netip.Addr{}, v4), "static address"},
		{"nil driver", WithDriver(nil), "driver"},
		{"nil acquirer", WithAcquirer(nil), "acquirer"},
		{"nil entropy", WithEntropy(nil), "entropy"},
		{"nil led", WithLED(nil), "led"},
		{"listen without port", WithListenAddr("localhost"), "host:port"},
		{"zero stats interval", WithStatsInterval(0), "stats interval"},
		{"negative blink period", WithBlinkPeriod(-time.Second), "blink period"},
		{"zero max connections", WithMaxConnections(0), "max connections"},
		{"negative link check", WithLinkCheckInterval(-time.Millisecond), "link check"},
		{"negative acquire retry", WithAcquireRetry(-time.Second), "acquire retry"},
		{"zero write timeout", WithWriteTimeout(0), "write timeout"},
		{"zero idle timeout", WithIdleTimeout(0), "idle timeout"},
		{"nil frame handler", WithFrameHandler(nil), "frame handler"},
		{"nil logger", WithLogger(nil), "logger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			if err == nil {
				t.Fatal("New() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_OptionsApplied(t *testing.T) {
	sim := driver.NewSim(false)
	led := hal.NewLogLED(nil)
	mac := MAC{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}

	node, err := New(
		WithInterfaceName("enp3s0"),
		WithMAC(mac),
		WithDriver(sim),
		WithLED(led),
		WithListenAddr("127.0.0.1:8000"),
		WithStatsInterval(250*time.Millisecond),
		WithBlinkPeriod(500*time.Millisecond),
		WithMaxConnections(2),
		WithLinkCheckInterval(0),
		WithAnnounce(true),
		WithAcquireRetry(0),
		WithWriteTimeout(2*time.Second),
		WithIdleTimeout(time.Minute),
		WithFrameHandler(func([]byte) {}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if node.name != "enp3s0" || node.mac != mac {
		t.Errorf("name/mac = %q/%v, want enp3s0/%v", node.name, node.mac, mac)
	}
	if node.driver != Driver(sim) || node.led != LED(led) {
		t.Error("driver or led option not applied")
	}
	if node.ListenAddr() != "127.0.0.1:8000" {
		t.Errorf("ListenAddr() = %q", node.ListenAddr())
	}
	if node.statsInterval != 250*time.Millisecond || node.blinkPeriod != 500*time.Millisecond {
		t.Errorf("intervals = %v/%v", node.statsInterval, node.blinkPeriod)
	}
	if node.maxConns != 2 || node.linkEvery != 0 || !node.announce {
		t.Errorf("maxConns/linkEvery/announce = %d/%v/%v", node.maxConns, node.linkEvery, node.announce)
	}
	if node.acquireEvery != 0 || node.writeTimeout != 2*time.Second || node.idleTimeout != time.Minute {
		t.Errorf("acquire/write/idle = %v/%v/%v", node.acquireEvery, node.writeTimeout, node.idleTimeout)
	}
	if node.onFrame == nil {
		t.Error("frame handler option not applied")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	node, err := New(WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if node.logger != logger {
		t.Error("logger option not applied")
	}
}

func TestWithListenCallback_NilIsSafe(t *testing.T) {
	node, err := New(WithListenCallback(nil), WithListenCallback(func(net.Addr) {}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(node.onListen) != 1 {
		t.Errorf("len(onListen) = %d, want 1", len(node.onListen))
	}
}
