package poller

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

const (
	readBufferSize = 2048
	maxBodySize    = 8 << 10
)

// EventKind enumerates what a [Handler] is told about a connection.
type EventKind uint8

const (
	// EventMessage carries a fully parsed HTTP request.
	EventMessage EventKind = iota + 1

	// EventClose is the last event of every connection, however it ended.
	EventClose

	// EventError reports why a connection is being torn down. It is followed
	// by EventClose.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Message is a parsed HTTP request. The body has already been consumed.
type Message struct {
	Method string
	Path   string
	Query  string
	Proto  string
	Header http.Header
	Close  bool
}

// Event is delivered to a connection's [Handler].
type Event struct {
	Kind    EventKind
	Message *Message
	Err     error
}

// Handler is the single dispatch entry point for a listener's connections.
// It runs on the polling goroutine and must not block.
type Handler func(c *Conn, ev Event)

// Conn is one accepted connection. It is owned by the [Manager] and must
// only be used from inside a [Handler].
type Conn struct {
	id      uint64
	nc      net.Conn
	remote  string
	handler Handler
	m       *Manager

	closeAfterReply bool
	closed          bool
	notified        bool
}

// ID is unique for the lifetime of the manager.
func (c *Conn) ID() uint64 { return c.id }

// RemoteAddr is the peer address.
func (c *Conn) RemoteAddr() string { return c.remote }

// Reply writes a complete HTTP/1.1 response. A write failure counts as a
// transport error on the interface and closes the connection.
func (c *Conn) Reply(status int, contentType string, body []byte) error {
	if c.closed {
		return ErrClosed
	}

	resp := &http.Response{
		StatusCode:    status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(bytes.NewReader(body)),
		Close:         c.closeAfterReply,
	}
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}

	var buf bytes.Buffer
	if err := resp.Write(&buf); err != nil {
		return fmt.Errorf("failed to encode reply: %w", err)
	}

	// Replies are written synchronously on the polling goroutine. They fit
	// in the socket send buffer, so only a peer that stopped reading can
	// stall here, for at most writeTimeout.
	_ = c.nc.SetWriteDeadline(time.Now().Add(c.m.writeTimeout))
	if _, err := c.nc.Write(buf.Bytes()); err != nil {
		c.m.ifp.RecordError()
		c.m.closeConn(c)
		return fmt.Errorf("failed to write reply: %w", err)
	}
	c.m.stats.Replies++
	return nil
}

// Close tears the connection down. The handler receives EventClose once
// the current event returns.
func (c *Conn) Close() {
	c.m.closeConn(c)
}

// connReader remembers the last error returned by the socket so a failed
// parse can be told apart from a failed read.
type connReader struct {
	r   io.Reader
	err error
}

func (cr *connReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if err != nil {
		cr.err = err
	}
	return n, err
}

var errBodyTooLarge = errors.New("request body too large")

// readLoop parses requests off one socket and forwards them to the polling
// goroutine. It never touches manager or connection state.
func (m *Manager) readLoop(c *Conn) {
	defer m.wg.Done()

	cr := &connReader{r: c.nc}
	br := bufio.NewReaderSize(cr, readBufferSize)
	for {
		_ = c.nc.SetReadDeadline(time.Now().Add(m.idleTimeout))
		req, err := http.ReadRequest(br)
		if err != nil {
			m.deliver(classifyReadError(c, cr.err, err))
			return
		}

		msg, err := newMessage(req)
		if err != nil {
			m.deliver(ingressEvent{kind: evFailed, conn: c, err: err})
			return
		}
		if !m.deliver(ingressEvent{kind: evMessage, conn: c, msg: msg}) || msg.Close {
			return
		}
	}
}

func classifyReadError(c *Conn, sockErr, parseErr error) ingressEvent {
	switch {
	case errors.Is(sockErr, net.ErrClosed):
		return ingressEvent{kind: evClosed, conn: c}
	case errors.Is(sockErr, os.ErrDeadlineExceeded):
		// idle peer, not a transport fault
		return ingressEvent{kind: evClosed, conn: c}
	case sockErr != nil && !errors.Is(sockErr, io.EOF):
		return ingressEvent{kind: evFailed, conn: c, err: sockErr, transport: true}
	case errors.Is(parseErr, io.EOF):
		return ingressEvent{kind: evClosed, conn: c}
	default:
		return ingressEvent{kind: evFailed, conn: c, err: fmt.Errorf("malformed request: %w", parseErr)}
	}
}

func newMessage(req *http.Request) (*Message, error) {
	n, err := io.Copy(io.Discard, io.LimitReader(req.Body, maxBodySize+1))
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if n > maxBodySize {
		return nil, errBodyTooLarge
	}

	return &Message{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.RawQuery,
		Proto:  req.Proto,
		Header: req.Header,
		Close:  req.Close,
	}, nil
}
