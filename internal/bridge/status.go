package bridge

import (
	"time"

	"github.com/jlgabriel/Condor-UDP-Middleware/internal/convert"
	"github.com/jlgabriel/Condor-UDP-Middleware/internal/settings"
	"github.com/jlgabriel/Condor-UDP-Middleware/internal/udp"
)

// Status is a merged, read-only snapshot of the bridge and its components.
type Status struct {
	State   string
	Running bool
	Uptime  time.Duration
	Errors  uint64

	// DataActive reports whether a datagram arrived recently enough for the
	// pipeline to be considered live.
	DataActive bool

	Processed uint64
	Converted uint64
	Forwarded uint64

	Receiver   udp.ReceiverStatus
	Sender     udp.SenderStatus
	Conversion convert.Statistics

	// Settings is a copy of the currently effective configuration, with the
	// conversions section reflecting the live snapshot.
	Settings settings.Settings

	// RecorderDropped is the number of samples the session recorder dropped,
	// zero when recording is off.
	RecorderDropped uint64
}

// Status computes a point-in-time snapshot. It never mutates any state.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	receiverStatus := b.receiver.Status()

	s := Status{
		State:      b.State().String(),
		Running:    b.State() == StateRunning,
		Errors:     b.errors.Load(),
		Processed:  b.processed.Load(),
		Converted:  b.converted.Load(),
		Forwarded:  b.forwarded.Load(),
		Receiver:   receiverStatus,
		Sender:     b.sender.Status(),
		Conversion: b.converter.Statistics(),
		Settings:   *b.settings,
	}
	s.Settings.Conversions = *b.conversions.Load()

	if started := b.startedAt.Load(); started > 0 && s.Running {
		s.Uptime = time.Since(time.Unix(0, started))
	}

	s.DataActive = receiverStatus.Running &&
		receiverStatus.LastReceivedAgo != nil &&
		*receiverStatus.LastReceivedAgo < dataActiveWindow

	if b.recorder != nil {
		s.RecorderDropped = b.recorder.Dropped()
	}

	return s
}
