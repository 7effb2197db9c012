package tracelog

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger.
// Useful for development when you want to see core decisions in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}
	if event.Observer != "" {
		attrs = append(attrs, slog.String("observer", event.Observer))
	}

	// Add type-specific attributes
	switch {
	case event.Sighting != nil:
		attrs = append(attrs,
			slog.Int("rssi", event.Sighting.RSSI),
			slog.Bool("connectable", event.Sighting.Connectable),
			slog.Bool("accepted", event.Sighting.Accepted),
		)
		if event.Sighting.Fingerprint != "" {
			attrs = append(attrs, slog.String("fingerprint", event.Sighting.Fingerprint))
		}
	case event.Switch != nil:
		attrs = append(attrs,
			slog.String("from", event.Switch.From),
			slog.String("to", event.Switch.To),
			slog.Int("from_rssi", event.Switch.FromRSSI),
			slog.Int("to_rssi", event.Switch.ToRSSI),
		)
		if event.Switch.Mode != "" {
			attrs = append(attrs, slog.String("mode", event.Switch.Mode))
		}
	case event.Notify != nil:
		attrs = append(attrs,
			slog.Int("rssi", event.Notify.RSSI),
			slog.Bool("connectable", event.Notify.Connectable),
		)
	case event.Availability != nil:
		attrs = append(attrs, slog.Bool("fired", event.Availability.Fired))
		if event.Availability.Timeout > 0 {
			attrs = append(attrs, slog.Duration("timeout", event.Availability.Timeout))
		}
	case event.Slot != nil:
		attrs = append(attrs,
			slog.String("op", event.Slot.Op.String()),
			slog.Int("free", event.Slot.Free),
		)
		if event.Slot.Token != "" {
			attrs = append(attrs, slog.String("token", event.Slot.Token))
		}
		if event.Slot.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Slot.Reason))
		}
	case event.Registry != nil:
		attrs = append(attrs,
			slog.String("op", event.Registry.Op),
			slog.String("kind", event.Registry.Kind),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
