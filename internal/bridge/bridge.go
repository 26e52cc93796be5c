// Package bridge wires the UDP receiver, the unit converter and the UDP
// sender into the receive → convert → forward pipeline, owns their lifecycle
// and supervises their health.
package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jlgabriel/Condor-UDP-Middleware/internal/convert"
	"github.com/jlgabriel/Condor-UDP-Middleware/internal/settings"
	"github.com/jlgabriel/Condor-UDP-Middleware/internal/storage"
	"github.com/jlgabriel/Condor-UDP-Middleware/internal/udp"
)

const (
	// checkInterval is how often the supervisory loop polls component health.
	checkInterval = time.Second

	// reportInterval is how often the supervisory loop logs an aggregate
	// status report.
	reportInterval = 30 * time.Second

	// livenessWindow is the maximum tolerated gap since the last received
	// datagram before the supervisory loop flags the input as stalled.
	livenessWindow = 10 * time.Second

	// dataActiveWindow bounds how recent the last datagram must be for the
	// status snapshot to report the data flow as active.
	dataActiveWindow = 5 * time.Second
)

// State is the bridge lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// WithLogger sets the logger for the bridge and its components.
func WithLogger(logger *slog.Logger) func(*Bridge) {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// Bridge owns one receiver, one converter and one sender. The receiver's
// per-datagram callback runs the converter and the sender; a supervisory
// goroutine polls component health and reports aggregate statistics.
type Bridge struct {
	mu    sync.Mutex // guards lifecycle transitions and component rebuilds
	state atomic.Int32

	settings    *settings.Settings
	conversions atomic.Pointer[convert.Settings]

	receiver  *udp.Receiver
	converter *convert.Converter
	sender    *udp.Sender

	store    *storage.Store
	recorder *storage.Recorder

	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	startedAt atomic.Int64
	processed atomic.Uint64
	converted atomic.Uint64
	forwarded atomic.Uint64
	errors    atomic.Uint64
}

// New creates a bridge for the given settings. The bridge does not bind any
// sockets until Start.
func New(s *settings.Settings, options ...func(*Bridge)) *Bridge {
	b := Bridge{
		settings: s,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	b.state.Store(int32(StateStopped))

	for _, option := range options {
		option(&b)
	}

	b.initComponents()
	return &b
}

// initComponents builds the receiver, converter and sender from the current
// settings and publishes the conversion snapshot. Callers must hold b.mu or
// be the constructor.
func (b *Bridge) initComponents() {
	conversions := b.settings.Conversions
	b.conversions.Store(&conversions)

	b.converter = convert.New(convert.WithLogger(b.logger))
	b.receiver = udp.NewReceiver("0.0.0.0", b.settings.Network.InputPort, b.handleDatagram,
		udp.WithReceiverLogger(b.logger))
	b.sender = udp.NewSender(b.settings.Network.OutputHost, b.settings.Network.OutputPort,
		udp.WithSenderLogger(b.logger))
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// Start binds the receiver, opens the sender and launches the supervisory
// loop. Any bind or open failure aborts the transition, increments the error
// counter and leaves the bridge stopped.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startLocked()
}

func (b *Bridge) startLocked() error {
	if State(b.state.Load()) != StateStopped {
		return fmt.Errorf("bridge is already running")
	}

	b.logger.Info("starting bridge")
	b.state.Store(int32(StateStarting))

	b.processed.Store(0)
	b.converted.Store(0)
	b.forwarded.Store(0)
	b.errors.Store(0)

	// The recorder comes up before the receiver so that no datagram can
	// observe a half-initialized recording session. Recording failures are
	// not fatal; the pipeline runs without persistence.
	if b.settings.Recording.Enabled {
		if err := b.startRecording(); err != nil {
			b.logger.Error(fmt.Sprintf("failed to start session recording: %s", err))
			b.errors.Add(1)
		}
	}

	if err := b.receiver.Start(); err != nil {
		b.errors.Add(1)
		b.stopRecording()
		b.state.Store(int32(StateStopped))
		return fmt.Errorf("starting UDP receiver: %w", err)
	}

	if err := b.sender.Open(); err != nil {
		b.errors.Add(1)
		b.receiver.Stop()
		b.stopRecording()
		b.state.Store(int32(StateStopped))
		return fmt.Errorf("opening UDP sender: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	b.wg.Add(1)
	go b.supervise(ctx)

	b.startedAt.Store(time.Now().UnixNano())
	b.state.Store(int32(StateRunning))

	b.logger.Info("bridge started",
		slog.Int("inputPort", b.settings.Network.InputPort),
		slog.String("target", fmt.Sprintf("%s:%d", b.settings.Network.OutputHost, b.settings.Network.OutputPort)))
	b.logConversionSettings()

	return nil
}

// Stop ends the supervisory loop, closes the sender and stops the receiver.
// It is safe to call on a stopped bridge.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *Bridge) stopLocked() {
	if State(b.state.Load()) == StateStopped {
		return
	}

	b.logger.Info("stopping bridge")
	b.state.Store(int32(StateStopping))

	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.wg.Wait()

	b.sender.Close()
	b.receiver.Stop()
	b.stopRecording()

	b.state.Store(int32(StateStopped))
	b.logger.Info("bridge stopped")
}

// handleDatagram is the per-datagram pipeline. It executes on the receiver's
// listen goroutine: datagrams are processed strictly in arrival order.
func (b *Bridge) handleDatagram(text string) {
	b.processed.Add(1)

	converted, record := b.converter.Process(text, b.conversions.Load())
	if record.Applied > 0 {
		b.converted.Add(1)
		b.logger.Debug("applied conversions", slog.Int("count", record.Applied))
	}

	if err := b.sender.Send(converted); err != nil {
		b.logger.Warn(fmt.Sprintf("failed to forward converted message: %s", err))
		b.errors.Add(1)
	} else {
		b.forwarded.Add(1)
	}

	if b.recorder != nil && !record.NoPairs {
		samples := make([]storage.Sample, len(record.Pairs))
		for i, pair := range record.Pairs {
			_, wasConverted := record.Details[pair.Name]
			samples[i] = storage.Sample{
				Variable:  pair.Name,
				Value:     pair.Value,
				Converted: wasConverted,
			}
		}
		b.recorder.Record(time.Now(), samples)
	}
}

// startRecording opens the session database and starts the recorder. Callers
// must hold b.mu.
func (b *Bridge) startRecording() error {
	dir := b.settings.Recording.DataDirectory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dir, fmt.Sprintf("session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	store := storage.New(dbPath)

	sessionID, err := store.CreateSession(
		context.Background(),
		time.Now(),
		fmt.Sprintf("0.0.0.0:%d", b.settings.Network.InputPort),
		fmt.Sprintf("%s:%d", b.settings.Network.OutputHost, b.settings.Network.OutputPort),
		b.settings.Conversions,
	)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("creating session: %w", err)
	}

	b.store = store
	b.recorder = storage.NewRecorder(store, sessionID,
		storage.WithMaxBatchSize(b.settings.Recording.MaxBatchSize),
		storage.WithRecorderLogger(b.logger))

	b.logger.Info("session recording started",
		slog.String("database", dbPath),
		slog.Int64("sessionID", sessionID))
	return nil
}

// stopRecording flushes and closes the recorder, if any. Callers must hold
// b.mu and must have stopped the receiver first.
func (b *Bridge) stopRecording() {
	if b.recorder == nil {
		return
	}

	b.recorder.Close()
	if err := b.store.Close(); err != nil {
		b.logger.Error(fmt.Sprintf("closing session store: %s", err))
	}

	b.recorder = nil
	b.store = nil
}

func (b *Bridge) logConversionSettings() {
	s := b.conversions.Load()
	if !s.Enabled {
		b.logger.Info("unit conversions disabled, passing through original data")
		return
	}

	b.logger.Info("unit conversions enabled",
		slog.String("altitude", string(s.Altitude)),
		slog.String("speed", string(s.Speed)),
		slog.String("vario", string(s.Vario)),
		slog.String("acceleration", string(s.Acceleration)))
}
