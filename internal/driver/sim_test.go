package driver

import (
	"errors"
	"testing"

	"github.com/jpalmerr/ethnode/internal/netif"
)

func TestSim_RxIsNonBlocking(t *testing.T) {
	s := NewSim(true)
	buf := make([]byte, netif.MaxFrameLen)

	n, err := s.Rx(buf)
	if n != 0 || err != nil {
		t.Fatalf("Rx() on empty queue = %d, %v, want 0, nil", n, err)
	}

	s.Inject([]byte{1, 2, 3})
	s.Inject([]byte{4, 5})

	n, _ = s.Rx(buf)
	if n != 3 || buf[0] != 1 {
		t.Errorf("first Rx() = %d bytes (% x), want 3 bytes starting 01", n, buf[:n])
	}
	n, _ = s.Rx(buf)
	if n != 2 || buf[0] != 4 {
		t.Errorf("second Rx() = %d bytes (% x), want 2 bytes starting 04", n, buf[:n])
	}
	n, _ = s.Rx(buf)
	if n != 0 {
		t.Errorf("third Rx() = %d, want 0", n)
	}
}

func TestSim_QueueBound(t *testing.T) {
	s := NewSim(true)
	for i := 0; i < simQueueLen; i++ {
		if !s.Inject([]byte{byte(i)}) {
			t.Fatalf("Inject() #%d refused before queue full", i)
		}
	}
	if s.Inject([]byte{0xff}) {
		t.Error("Inject() accepted frame beyond queue bound")
	}
	if s.Lost() != 1 {
		t.Errorf("Lost() = %d, want 1", s.Lost())
	}
}

func TestSim_LinkAndTx(t *testing.T) {
	s := NewSim(false)
	mac := netif.MAC{0x02, 1, 2, 3, 4, 5}
	if err := s.Init(mac); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if s.MAC() != mac {
		t.Errorf("MAC() = %s, want %s", s.MAC(), mac)
	}
	if s.Up() {
		t.Error("Up() = true, want false")
	}
	if _, err := s.Tx([]byte{1}); err == nil {
		t.Error("Tx() with link down expected error, got nil")
	}

	s.SetLink(true)
	if !s.Up() {
		t.Error("Up() = false after SetLink(true)")
	}
	if n, err := s.Tx([]byte{9, 9}); n != 2 || err != nil {
		t.Errorf("Tx() = %d, %v, want 2, nil", n, err)
	}

	boom := errors.New("boom")
	s.FailTx(boom)
	if _, err := s.Tx([]byte{1}); !errors.Is(err, boom) {
		t.Errorf("Tx() error = %v, want boom", err)
	}

	if len(s.Sent()) != 1 {
		t.Errorf("len(Sent()) = %d, want 1", len(s.Sent()))
	}

	_ = s.Close()
	if s.Up() {
		t.Error("Up() = true after Close()")
	}
}
