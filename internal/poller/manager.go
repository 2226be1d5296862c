package poller

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/ethnode/internal/driver"
	"github.com/jpalmerr/ethnode/internal/lease"
	"github.com/jpalmerr/ethnode/internal/netif"
)

const (
	// ingressQueueLen bounds events waiting for the polling goroutine;
	// reader goroutines block when it is full.
	ingressQueueLen = 64

	// maxEventsPerPoll bounds connection work done by one Poll call.
	maxEventsPerPoll = 32

	// rxBudget bounds frames ingested by one Poll call.
	rxBudget = 16

	// rxBufferSize leaves room to detect oversized frames.
	rxBufferSize = 2048
)

var (
	// ErrClosed is returned when using a closed manager or connection.
	ErrClosed = errors.New("poller: closed")

	// ErrListening is returned by a second call to Listen.
	ErrListening = errors.New("poller: already listening")
)

type ingressKind uint8

const (
	evAccept ingressKind = iota + 1
	evMessage
	evClosed
	evFailed
)

// ingressEvent is the only thing that crosses from I/O goroutines to the
// polling goroutine.
type ingressEvent struct {
	kind      ingressKind
	nc        net.Conn
	conn      *Conn
	msg       *Message
	err       error
	transport bool
}

// Stats are connection-level totals kept by the manager.
type Stats struct {
	Accepted       uint64
	Rejected       uint64
	Active         int
	Requests       uint64
	Replies        uint64
	ProtocolErrors uint64
}

// Manager is the event poller. It owns one interface, its driver, the
// registered timers and every connection, and makes progress on all of
// them only when [Manager.Poll] is called.
//
// Apart from Close racing nothing, a Manager must be used from one goroutine.
type Manager struct {
	ifp          *netif.Interface
	drv          driver.Driver
	acq          lease.Acquirer
	logger       *slog.Logger
	maxConns     int
	linkEvery    time.Duration
	acquireEvery time.Duration
	announce     bool
	onFrame      func([]byte)
	writeTimeout time.Duration
	idleTimeout  time.Duration

	now   func() time.Time
	rxbuf []byte

	linkChecked bool
	lastLink    time.Time
	nextAcquire time.Time

	timers []*Timer

	ingress chan ingressEvent
	done    chan struct{}
	wg      sync.WaitGroup

	ln      net.Listener
	handler Handler
	conns   map[uint64]*Conn
	nextID  uint64
	stats   Stats
	closed  bool
}

// New creates a manager for ifp driven by drv and initialises the driver
// with the interface's hardware address.
func New(ifp *netif.Interface, drv driver.Driver, opts ...Option) (*Manager, error) {
	if ifp == nil {
		return nil, errors.New("interface is required")
	}
	if drv == nil {
		return nil, errors.New("driver is required")
	}

	m := &Manager{
		ifp:          ifp,
		drv:          drv,
		maxConns:     defaultMaxConnections,
		linkEvery:    defaultLinkCheckInterval,
		acquireEvery: defaultAcquireRetry,
		writeTimeout: defaultWriteTimeout,
		idleTimeout:  defaultIdleTimeout,
		now:          time.Now,
		rxbuf:        make([]byte, rxBufferSize),
		ingress:      make(chan ingressEvent, ingressQueueLen),
		done:         make(chan struct{}),
		conns:        make(map[uint64]*Conn),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}
	if !ifp.Static() && m.acq == nil {
		return nil, errors.New("dynamic addressing requires an address acquirer")
	}
	if m.maxConns < 1 {
		return nil, fmt.Errorf("max connections must be at least 1, got %d", m.maxConns)
	}
	if m.linkEvery < 0 || m.acquireEvery < 0 {
		return nil, errors.New("check intervals cannot be negative")
	}
	if m.writeTimeout <= 0 || m.idleTimeout <= 0 {
		return nil, errors.New("write and idle timeouts must be positive")
	}

	if err := drv.Init(ifp.MAC()); err != nil {
		return nil, fmt.Errorf("failed to initialise driver: %w", err)
	}

	ifp.OnChange(func(from, to netif.State) {
		m.logger.Debug("interface state changed", "interface", ifp.Name(), "from", from.String(), "to", to.String())
	})
	return m, nil
}

// Interface returns the owned interface. Only the polling goroutine may use it.
func (m *Manager) Interface() *netif.Interface {
	return m.ifp
}

// Stats returns connection totals. Only the polling goroutine may call it.
func (m *Manager) Stats() Stats {
	s := m.stats
	s.Active = len(m.conns)
	return s
}

// Poll runs one bounded round of work: pending connection events, link and
// address management, frame ingestion, then due timers.
//
// When nothing was pending Poll waits up to timeout for a connection event,
// never past the next timer deadline. A timeout of zero or less never waits.
func (m *Manager) Poll(timeout time.Duration) {
	if m.closed {
		return
	}

	if m.drain() == 0 && timeout > 0 {
		if m.await(timeout) {
			m.drain()
		}
	}

	now := m.now()
	m.serviceInterface(now)
	m.expireTimers(now)
}

// Send transmits one frame through the driver and accounts for it.
func (m *Manager) Send(frame []byte) error {
	_, err := m.drv.Tx(frame)
	m.ifp.RecordTx(err)
	if err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

// Listen attaches a TCP listener. Connections are served by h.
func (m *Manager) Listen(addr string, h Handler) error {
	if m.closed {
		return ErrClosed
	}
	if m.ln != nil {
		return ErrListening
	}
	if h == nil {
		return errors.New("handler is required")
	}

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	m.ln = ln
	m.handler = h

	m.wg.Add(1)
	go m.acceptLoop(ln)
	return nil
}

// Addr returns the listener address, or nil before Listen.
func (m *Manager) Addr() net.Addr {
	if m.ln == nil {
		return nil
	}
	return m.ln.Addr()
}

// Close stops the listener, drops every connection and releases the
// driver. Safe to call more than once.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)

	var errs []error
	if m.ln != nil {
		if err := m.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	for _, c := range m.conns {
		m.finish(c)
	}
	m.wg.Wait()

	// accepted but never handled
pending:
	for {
		select {
		case ev := <-m.ingress:
			if ev.kind == evAccept {
				_ = ev.nc.Close()
			}
		default:
			break pending
		}
	}

	if err := m.drv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close driver: %w", err))
	}
	return errors.Join(errs...)
}

// serviceInterface samples the link, advances address acquisition and
// ingests pending frames.
func (m *Manager) serviceInterface(now time.Time) {
	if !m.linkChecked || now.Sub(m.lastLink) >= m.linkEvery {
		m.linkChecked = true
		m.lastLink = now
		m.checkLink()
	}

	if m.ifp.State() == netif.StateUp {
		m.bringUp(now)
	}
	if m.ifp.State() == netif.StateRequested && !now.Before(m.nextAcquire) {
		m.acquire(now)
	}

	m.ingest()
}

func (m *Manager) checkLink() {
	up := m.drv.Up()
	switch {
	case up && m.ifp.State() == netif.StateDown:
		_ = m.ifp.LinkUp()
	case !up && m.ifp.State() != netif.StateDown:
		m.logger.Warn("link lost", "interface", m.ifp.Name())
		_ = m.ifp.LinkDown()
	}
}

func (m *Manager) bringUp(now time.Time) {
	if m.ifp.Static() {
		if err := m.ifp.Ready(); err != nil {
			m.logger.Error("failed to bring interface up", "interface", m.ifp.Name(), "error", err)
			return
		}
		m.onReady()
		return
	}
	if err := m.ifp.RequestAddress(); err != nil {
		m.logger.Error("failed to request address", "interface", m.ifp.Name(), "error", err)
		return
	}
	m.nextAcquire = now
}

func (m *Manager) acquire(now time.Time) {
	m.nextAcquire = now.Add(m.acquireEvery)

	a, err := m.acq.Acquire()
	if err != nil {
		if errors.Is(err, lease.ErrPending) {
			m.logger.Debug("address not yet available", "interface", m.ifp.Name(), "reason", err.Error())
		} else {
			m.logger.Warn("address acquisition failed", "interface", m.ifp.Name(), "error", err)
		}
		return
	}
	if err := m.ifp.Bind(a); err != nil {
		m.logger.Warn("failed to bind acquired address", "interface", m.ifp.Name(), "error", err)
		return
	}
	m.onReady()
}

func (m *Manager) onReady() {
	a := m.ifp.Addresses()
	m.logger.Info("interface ready",
		"interface", m.ifp.Name(),
		"ip", a.IP.String(),
		"netmask", a.Netmask.String(),
		"gateway", a.Gateway.String(),
	)
	if !m.announce {
		return
	}
	frame, err := m.ifp.Announcement()
	if err == nil {
		err = m.Send(frame)
	}
	if err != nil {
		m.logger.Warn("failed to announce address", "interface", m.ifp.Name(), "error", err)
	}
}

// ingest reads up to rxBudget frames from the driver.
func (m *Manager) ingest() {
	for i := 0; i < rxBudget; i++ {
		n, err := m.drv.Rx(m.rxbuf)
		if err != nil {
			m.ifp.RecordError()
			return
		}
		if n == 0 {
			return
		}
		frame := m.rxbuf[:n]
		if m.ifp.RecordRx(frame) && m.onFrame != nil {
			m.safeCall("frame handler", func() { m.onFrame(frame) })
		}
	}
}

// drain handles queued connection events without waiting.
func (m *Manager) drain() int {
	n := 0
	for n < maxEventsPerPoll {
		select {
		case ev := <-m.ingress:
			m.handle(ev)
			n++
		default:
			return n
		}
	}
	return n
}

// await waits for one connection event, bounded by timeout and the next
// timer deadline.
func (m *Manager) await(timeout time.Duration) bool {
	if d, ok := m.untilNextTimer(m.now()); ok && d < timeout {
		timeout = d
	}
	if timeout <= 0 {
		return false
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case ev := <-m.ingress:
		m.handle(ev)
		return true
	case <-t.C:
		return false
	}
}

func (m *Manager) handle(ev ingressEvent) {
	switch ev.kind {
	case evAccept:
		m.accept(ev.nc)

	case evMessage:
		c := ev.conn
		if c.closed {
			return
		}
		m.stats.Requests++
		c.closeAfterReply = ev.msg.Close
		m.dispatch(c, Event{Kind: EventMessage, Message: ev.msg})
		if ev.msg.Close || c.closed {
			m.finish(c)
		}

	case evClosed:
		m.finish(ev.conn)

	case evFailed:
		c := ev.conn
		if c.closed {
			m.finish(c)
			return
		}
		if ev.transport {
			m.ifp.RecordError()
		} else {
			m.stats.ProtocolErrors++
		}
		m.logger.Debug("connection failed",
			"conn", c.id,
			"remote", c.remote,
			"transport", ev.transport,
			"error", ev.err,
		)
		m.closeConn(c)
		m.dispatch(c, Event{Kind: EventError, Err: ev.err})
		m.finish(c)
	}
}

func (m *Manager) accept(nc net.Conn) {
	if m.closed {
		_ = nc.Close()
		return
	}
	if len(m.conns) >= m.maxConns {
		_ = nc.Close()
		m.stats.Rejected++
		m.logger.Warn("connection rejected",
			"remote", nc.RemoteAddr().String(),
			"reason", "connection table full",
			"max_connections", m.maxConns,
		)
		return
	}

	m.nextID++
	c := &Conn{
		id:      m.nextID,
		nc:      nc,
		remote:  nc.RemoteAddr().String(),
		handler: m.handler,
		m:       m,
	}
	m.conns[c.id] = c
	m.stats.Accepted++

	m.wg.Add(1)
	go m.readLoop(c)
}

// finish closes c and delivers its EventClose exactly once.
func (m *Manager) finish(c *Conn) {
	m.closeConn(c)
	if c.notified {
		return
	}
	c.notified = true
	m.dispatch(c, Event{Kind: EventClose})
}

func (m *Manager) closeConn(c *Conn) {
	if c.closed {
		return
	}
	c.closed = true
	_ = c.nc.Close()
	delete(m.conns, c.id)
}

// dispatch calls the connection handler with panic recovery. A panicking
// handler gets its connection answered with 500 and closed.
func (m *Manager) dispatch(c *Conn, ev Event) {
	if c.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			m.logger.Error("handler panic",
				"correlation_id", correlationID,
				"event", ev.Kind.String(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			if ev.Kind == EventMessage && !c.closed {
				body := fmt.Sprintf("Internal Server Error (correlation_id: %s)\n", correlationID)
				c.closeAfterReply = true
				_ = c.Reply(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte(body))
				m.closeConn(c)
			}
		}
	}()
	c.handler(c, ev)
}

// safeCall runs a timer or frame callback with panic recovery.
func (m *Manager) safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(what+" panic",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// deliver hands an event to the polling goroutine. It returns false once
// the manager is closed.
func (m *Manager) deliver(ev ingressEvent) bool {
	select {
	case m.ingress <- ev:
		return true
	case <-m.done:
		if ev.kind == evAccept {
			_ = ev.nc.Close()
		}
		return false
	}
}

func (m *Manager) acceptLoop(ln net.Listener) {
	defer m.wg.Done()

	var backoff time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-m.done:
				return
			default:
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff *= 2
			}
			if backoff > time.Second {
				backoff = time.Second
			}
			m.logger.Warn("accept failed", "error", err, "retry_in", backoff.String())
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if !m.deliver(ingressEvent{kind: evAccept, nc: nc}) {
			return
		}
	}
}
