// Package udp implements the inbound and outbound datagram endpoints of the
// middleware. Each endpoint owns its socket and statistics; callers read
// state through point-in-time status snapshots.
package udp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

const (
	// MaxDatagramSize is the largest payload a single datagram can carry.
	MaxDatagramSize = 65535

	// readTimeout bounds each blocking receive so a stop request is observed
	// within a small delay instead of blocking indefinitely.
	readTimeout = 500 * time.Millisecond

	// stopTimeout bounds how long Stop waits for the listen goroutine.
	stopTimeout = 2 * time.Second
)

// Handler is invoked with the decoded text of each inbound datagram. It runs
// on the receiver's listen goroutine; datagrams are handled strictly in
// arrival order.
type Handler func(text string)

// WithReceiverLogger sets the logger for the receiver.
func WithReceiverLogger(logger *slog.Logger) func(*Receiver) {
	return func(r *Receiver) {
		r.logger = logger.With(slog.String("component", "udp-receiver"))
	}
}

// Receiver owns the inbound UDP endpoint. A dedicated goroutine blocks on
// datagram arrival and invokes the registered handler per datagram. Handler
// panics are caught, logged and counted; the listen loop survives them.
type Receiver struct {
	host    string
	port    int
	handler Handler
	logger  *slog.Logger

	conn    *net.UDPConn
	running atomic.Bool
	done    chan struct{}

	messages     atomic.Uint64
	bytes        atomic.Uint64
	errorCount   atomic.Uint64
	startedAt    atomic.Int64 // unix nanos, 0 when never started
	lastReceived atomic.Int64 // unix nanos, 0 when no datagram yet
}

// NewReceiver creates a receiver bound to host:port once started. The
// handler must not be nil.
func NewReceiver(host string, port int, handler Handler, options ...func(*Receiver)) *Receiver {
	r := Receiver{
		host:    host,
		port:    port,
		handler: handler,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Start binds the inbound socket and launches the listen goroutine. It
// returns an error if the receiver is already running or the bind fails.
func (r *Receiver) Start() error {
	if r.running.Load() {
		return fmt.Errorf("receiver is already running")
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(r.host), Port: r.port})
	if err != nil {
		return fmt.Errorf("binding %s:%d: %w", r.host, r.port, err)
	}

	r.conn = conn
	r.done = make(chan struct{})
	r.messages.Store(0)
	r.bytes.Store(0)
	r.errorCount.Store(0)
	r.lastReceived.Store(0)
	r.startedAt.Store(time.Now().UnixNano())
	r.running.Store(true)

	go r.listen()

	r.logger.Info("UDP receiver bound", slog.String("address", conn.LocalAddr().String()))
	return nil
}

// Stop requests the listen goroutine to end and waits for it, bounded. A
// timeout is logged as a warning but does not block shutdown.
func (r *Receiver) Stop() {
	if !r.running.Load() {
		return
	}

	r.running.Store(false)

	select {
	case <-r.done:
	case <-time.After(stopTimeout):
		r.logger.Warn("receive loop did not exit within timeout")
	}

	if r.conn != nil {
		_ = r.conn.Close()
	}

	r.logger.Info("UDP receiver stopped")
}

// Addr returns the bound local address, or nil when not bound. Useful when
// the receiver was started on port 0.
func (r *Receiver) Addr() net.Addr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

func (r *Receiver) listen() {
	defer close(r.done)

	buf := make([]byte, MaxDatagramSize)
	for r.running.Load() {
		_ = r.conn.SetReadDeadline(time.Now().Add(readTimeout))

		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			if r.running.Load() && !errors.Is(err, net.ErrClosed) {
				r.logger.Error(fmt.Sprintf("UDP receive error: %s", err))
				r.errorCount.Add(1)
			}
			return
		}
		if n == 0 {
			continue
		}

		if !utf8.Valid(buf[:n]) {
			r.logger.Warn("dropping non-UTF-8 datagram", slog.Int("bytes", n))
			r.errorCount.Add(1)
			continue
		}

		r.messages.Add(1)
		r.bytes.Add(uint64(n))
		r.lastReceived.Store(time.Now().UnixNano())

		r.dispatch(string(buf[:n]))
	}
}

// dispatch invokes the handler, containing any panic so the listen loop
// never terminates on a handler failure.
func (r *Receiver) dispatch(text string) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(fmt.Sprintf("error in datagram handler: %v", p))
			r.errorCount.Add(1)
		}
	}()

	r.handler(text)
}

// ReceiverStatus is a point-in-time snapshot of the receiver's state.
type ReceiverStatus struct {
	Host            string
	Port            int
	Bound           bool
	Running         bool
	Messages        uint64
	Bytes           uint64
	Errors          uint64
	Uptime          time.Duration
	MessageRate     float64        // messages per second since start
	LastReceivedAgo *time.Duration // nil until the first datagram arrives
}

// Status returns the current receiver status.
func (r *Receiver) Status() ReceiverStatus {
	now := time.Now()

	s := ReceiverStatus{
		Host:     r.host,
		Port:     r.port,
		Bound:    r.conn != nil,
		Running:  r.running.Load(),
		Messages: r.messages.Load(),
		Bytes:    r.bytes.Load(),
		Errors:   r.errorCount.Load(),
	}

	if addr, ok := r.Addr().(*net.UDPAddr); ok {
		s.Port = addr.Port
	}

	if started := r.startedAt.Load(); started > 0 {
		s.Uptime = now.Sub(time.Unix(0, started))
		if secs := s.Uptime.Seconds(); secs > 0 {
			s.MessageRate = float64(s.Messages) / secs
		}
	}

	if last := r.lastReceived.Load(); last > 0 {
		ago := now.Sub(time.Unix(0, last))
		s.LastReceivedAgo = &ago
	}

	return s
}
