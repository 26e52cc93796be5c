package udp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrNotOpen is returned by Send when the sender socket is not open.
	ErrNotOpen = errors.New("sender is not open")

	// ErrQueueFull is returned by Send in queued mode when the outbound
	// queue is at capacity and the message was dropped.
	ErrQueueFull = errors.New("send queue is full")
)

// WithSenderLogger sets the logger for the sender.
func WithSenderLogger(logger *slog.Logger) func(*Sender) {
	return func(s *Sender) {
		s.logger = logger.With(slog.String("component", "udp-sender"))
	}
}

// WithQueue switches the sender into queued mode: Send enqueues onto a
// bounded queue drained by a worker goroutine instead of transmitting
// synchronously. Messages are dropped (and counted as errors) when the queue
// is full. The default, synchronous mode is what the bridge pipeline uses.
func WithQueue(size int) func(*Sender) {
	return func(s *Sender) {
		s.queueSize = size
	}
}

// Sender owns the outbound UDP endpoint. Open validates the target address
// with a connectionless route check but never treats validation failure as
// fatal: UDP requires no handshake, so sends proceed regardless.
type Sender struct {
	host   string
	port   int
	logger *slog.Logger

	conn      *net.UDPConn
	addr      *net.UDPAddr
	validated bool
	active    atomic.Bool

	queueSize int
	queue     chan string
	queueDone chan struct{}
	wg        sync.WaitGroup

	messages   atomic.Uint64
	bytes      atomic.Uint64
	errorCount atomic.Uint64
	startedAt  atomic.Int64
	lastSent   atomic.Int64
}

// NewSender creates a sender targeting host:port once opened.
func NewSender(host string, port int, options ...func(*Sender)) *Sender {
	s := Sender{
		host:   host,
		port:   port,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Open creates the outbound socket. The target address is validated via
// connect(); on validation failure the sender falls back to an unconnected
// socket and keeps sending, surfacing validated=false in status for
// diagnostics only.
func (s *Sender) Open() error {
	if s.active.Load() {
		return fmt.Errorf("sender is already open")
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		s.errorCount.Add(1)
		return fmt.Errorf("resolving target %s:%d: %w", s.host, s.port, err)
	}
	s.addr = addr

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("could not validate target address %s: %s", addr, err))
		s.validated = false

		if conn, err = net.ListenUDP("udp", nil); err != nil {
			s.errorCount.Add(1)
			return fmt.Errorf("creating UDP socket: %w", err)
		}
	} else {
		s.validated = true
	}

	s.conn = conn
	s.messages.Store(0)
	s.bytes.Store(0)
	s.lastSent.Store(0)
	s.startedAt.Store(time.Now().UnixNano())
	s.active.Store(true)

	if s.queueSize > 0 {
		s.queue = make(chan string, s.queueSize)
		s.queueDone = make(chan struct{})
		s.wg.Add(1)
		go s.drainQueue()
	}

	s.logger.Info("UDP sender initialized",
		slog.String("target", addr.String()),
		slog.Bool("validated", s.validated))
	return nil
}

// Close stops the queue worker, drains pending messages and closes the
// socket. It is safe to call on a sender that was never opened.
func (s *Sender) Close() {
	if !s.active.Load() {
		return
	}

	s.active.Store(false)

	if s.queue != nil {
		close(s.queueDone)
		s.wg.Wait()
		s.queue = nil
	}

	if s.conn != nil {
		_ = s.conn.Close()
	}

	s.logger.Info("UDP sender closed")
}

// Send transmits one datagram carrying text. In queued mode the message is
// enqueued instead and transmitted by the worker goroutine; a full queue
// drops the message and returns ErrQueueFull. Transmission failures are
// logged, counted and reported to the caller but are never fatal.
func (s *Sender) Send(text string) error {
	if !s.active.Load() {
		return ErrNotOpen
	}

	if s.queue != nil {
		select {
		case s.queue <- text:
			return nil
		default:
			s.logger.Warn("send queue full, dropping message")
			s.errorCount.Add(1)
			return ErrQueueFull
		}
	}

	return s.transmit(text)
}

func (s *Sender) transmit(text string) error {
	payload := []byte(text)

	var n int
	var err error
	if s.validated {
		n, err = s.conn.Write(payload)
	} else {
		n, err = s.conn.WriteToUDP(payload, s.addr)
	}
	if err != nil {
		s.logger.Error(fmt.Sprintf("error sending UDP message: %s", err))
		s.errorCount.Add(1)
		return fmt.Errorf("sending datagram: %w", err)
	}

	s.messages.Add(1)
	s.bytes.Add(uint64(n))
	s.lastSent.Store(time.Now().UnixNano())

	s.logger.Debug("sent datagram", slog.Int("bytes", n))
	return nil
}

// drainQueue transmits queued messages until Close, then drains whatever is
// still pending before returning.
func (s *Sender) drainQueue() {
	defer s.wg.Done()

	for {
		select {
		case text := <-s.queue:
			_ = s.transmit(text)

		case <-s.queueDone:
			for {
				select {
				case text := <-s.queue:
					_ = s.transmit(text)
				default:
					return
				}
			}
		}
	}
}

// SenderStatus is a point-in-time snapshot of the sender's state.
type SenderStatus struct {
	TargetHost  string
	TargetPort  int
	Validated   bool
	Active      bool
	Queued      int // pending messages, queued mode only
	Messages    uint64
	Bytes       uint64
	Errors      uint64
	Uptime      time.Duration
	SendRate    float64        // messages per second since open
	LastSentAgo *time.Duration // nil until the first send
}

// Status returns the current sender status.
func (s *Sender) Status() SenderStatus {
	now := time.Now()

	st := SenderStatus{
		TargetHost: s.host,
		TargetPort: s.port,
		Validated:  s.validated,
		Active:     s.active.Load(),
		Messages:   s.messages.Load(),
		Bytes:      s.bytes.Load(),
		Errors:     s.errorCount.Load(),
	}

	if s.queue != nil {
		st.Queued = len(s.queue)
	}

	if started := s.startedAt.Load(); started > 0 {
		st.Uptime = now.Sub(time.Unix(0, started))
		if secs := st.Uptime.Seconds(); secs > 0 {
			st.SendRate = float64(st.Messages) / secs
		}
	}

	if last := s.lastSent.Load(); last > 0 {
		ago := now.Sub(time.Unix(0, last))
		st.LastSentAgo = &ago
	}

	return st
}
