package bridge

import (
	"fmt"
	"log/slog"

	"github.com/jlgabriel/Condor-UDP-Middleware/internal/convert"
	"github.com/jlgabriel/Condor-UDP-Middleware/internal/settings"
)

// ConversionUpdate is a partial update of the conversion preferences. Nil
// fields keep their current value.
type ConversionUpdate struct {
	Enabled      *bool
	Altitude     *convert.Unit
	Speed        *convert.Unit
	Vario        *convert.Unit
	Acceleration *convert.Unit
}

// UpdateConversionSettings applies a partial conversion settings update
// without restarting the bridge. The new preferences are published as a
// single atomic snapshot: a message mid-conversion keeps the snapshot it
// started with, the next message observes the full replacement.
func (b *Bridge) UpdateConversionSettings(update ConversionUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := *b.conversions.Load()
	if update.Enabled != nil {
		next.Enabled = *update.Enabled
	}
	if update.Altitude != nil {
		next.Altitude = *update.Altitude
	}
	if update.Speed != nil {
		next.Speed = *update.Speed
	}
	if update.Vario != nil {
		next.Vario = *update.Vario
	}
	if update.Acceleration != nil {
		next.Acceleration = *update.Acceleration
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid conversion settings: %w", err)
	}

	b.settings.Conversions = next
	b.conversions.Store(&next)

	b.logger.Info("conversion settings updated",
		slog.Bool("enabled", next.Enabled),
		slog.String("altitude", string(next.Altitude)),
		slog.String("speed", string(next.Speed)),
		slog.String("vario", string(next.Vario)),
		slog.String("acceleration", string(next.Acceleration)))
	return nil
}

// UpdateSettings replaces the full configuration. This is the only
// reconfiguration path allowed to interrupt the data path: a running bridge
// is stopped, its components rebuilt from the new settings, and started
// again.
func (b *Bridge) UpdateSettings(next *settings.Settings) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	wasRunning := State(b.state.Load()) == StateRunning
	if wasRunning {
		b.stopLocked()
	}

	b.settings = next
	b.initComponents()

	if wasRunning {
		if err := b.startLocked(); err != nil {
			return fmt.Errorf("restarting with new settings: %w", err)
		}
	}

	b.logger.Info("settings updated")
	return nil
}
