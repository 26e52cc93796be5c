package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// supervise is the supervisory loop: a periodic, non-blocking health check
// of the receiver and sender plus a less frequent aggregate status report.
// It never sits on the data path; it only observes counters exposed by the
// other components. Runs until cancelled by Stop.
func (b *Bridge) supervise(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	lastReport := time.Now()
	for {
		select {
		case <-ctx.Done():
			b.logger.Debug("supervisory loop cancelled")
			return

		case <-ticker.C:
			b.checkComponents()

			if time.Since(lastReport) >= reportInterval {
				b.logStatusReport()
				lastReport = time.Now()
			}
		}
	}
}

// checkComponents polls component liveness flags and recency of activity.
func (b *Bridge) checkComponents() {
	receiverStatus := b.receiver.Status()
	if !receiverStatus.Running {
		b.logger.Warn("UDP receiver not running")
	}

	senderStatus := b.sender.Status()
	if !senderStatus.Active {
		b.logger.Warn("UDP sender not active")
	}

	// Only flag stalled input once data has flowed at least once.
	if b.processed.Load() > 0 && receiverStatus.LastReceivedAgo != nil && *receiverStatus.LastReceivedAgo > livenessWindow {
		b.logger.Warn(fmt.Sprintf("no data received for %.1f seconds", receiverStatus.LastReceivedAgo.Seconds()))
	}
}

// logStatusReport logs the aggregate state of the bridge and its components.
func (b *Bridge) logStatusReport() {
	receiverStatus := b.receiver.Status()
	senderStatus := b.sender.Status()
	converterStats := b.converter.Statistics()

	uptime := time.Duration(0)
	if started := b.startedAt.Load(); started > 0 {
		uptime = time.Since(time.Unix(0, started))
	}

	b.logger.Info("bridge status",
		slog.Group("bridge",
			slog.String("state", b.State().String()),
			slog.String("uptime", uptime.Round(time.Second).String()),
			slog.Uint64("errors", b.errors.Load()),
		),
		slog.Group("receiver",
			slog.Bool("running", receiverStatus.Running),
			slog.Uint64("messages", receiverStatus.Messages),
			slog.String("received", humanize.Bytes(receiverStatus.Bytes)),
			slog.String("rate", fmt.Sprintf("%.1f msg/sec", receiverStatus.MessageRate)),
		),
		slog.Group("sender",
			slog.Bool("active", senderStatus.Active),
			slog.Uint64("messages", senderStatus.Messages),
			slog.String("sent", humanize.Bytes(senderStatus.Bytes)),
			slog.String("rate", fmt.Sprintf("%.1f msg/sec", senderStatus.SendRate)),
		),
		slog.Group("conversion",
			slog.Uint64("processed", b.processed.Load()),
			slog.Uint64("converted", b.converted.Load()),
			slog.Uint64("forwarded", b.forwarded.Load()),
			slog.Uint64("totalConversions", converterStats.TotalConversions),
		))
}
