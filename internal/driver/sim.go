package driver

import (
	"errors"
	"sync"

	"github.com/jpalmerr/ethnode/internal/netif"
)

// simQueueLen bounds the inbound frame queue; frames beyond it are lost the
// way a full DMA ring loses them.
const simQueueLen = 64

// Sim is an in-memory Ethernet device. Link state and inbound frames are
// controlled by the caller, outbound frames are captured. Safe for
// concurrent use so tests can drive it while the poller owns it.
type Sim struct {
	mu     sync.Mutex
	mac    netif.MAC
	up     bool
	rx     [][]byte
	tx     [][]byte
	lost   uint64
	failTx error
	closed bool
}

var _ Driver = (*Sim)(nil)

// NewSim returns a simulated device whose link starts in the given state.
func NewSim(linkUp bool) *Sim {
	return &Sim{up: linkUp}
}

func (s *Sim) Init(mac netif.MAC) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sim driver closed")
	}
	s.mac = mac
	return nil
}

func (s *Sim) Up() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.up && !s.closed
}

func (s *Sim) Rx(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rx) == 0 {
		return 0, nil
	}
	f := s.rx[0]
	s.rx = s.rx[1:]
	return copy(buf, f), nil
}

func (s *Sim) Tx(frame []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTx != nil {
		return 0, s.failTx
	}
	if !s.up {
		return 0, errors.New("link down")
	}
	s.tx = append(s.tx, append([]byte(nil), frame...))
	return len(frame), nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// SetLink changes the simulated physical link state.
func (s *Sim) SetLink(up bool) {
	s.mu.Lock()
	s.up = up
	s.mu.Unlock()
}

// Inject queues an inbound frame. It returns false when the queue is full.
func (s *Sim) Inject(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rx) >= simQueueLen {
		s.lost++
		return false
	}
	s.rx = append(s.rx, append([]byte(nil), frame...))
	return true
}

// FailTx makes subsequent Tx calls return err; nil restores normal sends.
func (s *Sim) FailTx(err error) {
	s.mu.Lock()
	s.failTx = err
	s.mu.Unlock()
}

// Sent returns copies of all transmitted frames.
func (s *Sim) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.tx))
	copy(out, s.tx)
	return out
}

// Lost returns how many injected frames were refused by a full queue.
func (s *Sim) Lost() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lost
}

// MAC returns the address passed to Init.
func (s *Sim) MAC() netif.MAC {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mac
}
