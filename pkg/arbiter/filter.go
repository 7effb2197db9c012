package arbiter

import (
	"time"

	"github.com/blemux/blemux-go/pkg/sighting"
)

// Dedup filter defaults.
const (
	// DefaultStrengthDelta is the minimum dB change worth notifying.
	DefaultStrengthDelta = 4

	// DefaultTimeFloor is the maximum silence between notifications for
	// an otherwise unchanged device. Keeps liveness visible downstream.
	DefaultTimeFloor = 60 * time.Second
)

// FilterConfig holds dedup filter configuration.
type FilterConfig struct {
	// StrengthDelta is the minimum absolute dB change that counts as
	// materially different.
	StrengthDelta int

	// TimeFloor is the elapsed time after which an unchanged sighting
	// is forwarded anyway.
	TimeFloor time.Duration
}

// DefaultFilterConfig returns the default filter configuration.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		StrengthDelta: DefaultStrengthDelta,
		TimeFloor:     DefaultTimeFloor,
	}
}

// Filter decides whether an arbitrated record is materially different
// from the one last forwarded to subscribers.
type Filter struct {
	cfg FilterConfig
}

// NewFilter creates a dedup filter.
func NewFilter(cfg FilterConfig) *Filter {
	if cfg.StrengthDelta <= 0 {
		cfg.StrengthDelta = DefaultStrengthDelta
	}
	if cfg.TimeFloor <= 0 {
		cfg.TimeFloor = DefaultTimeFloor
	}
	return &Filter{cfg: cfg}
}

// ShouldNotify reports whether next is worth forwarding given the last
// notified record. A nil last record always notifies, as does a change
// of observer, payload, connectability, a strength move beyond the
// configured delta, or the time floor elapsing.
func (f *Filter) ShouldNotify(last *sighting.Record, next sighting.Record) bool {
	if last == nil {
		return true
	}
	if last.Observer != next.Observer {
		return true
	}
	if last.Fingerprint != next.Fingerprint {
		return true
	}
	if last.Connectable != next.Connectable {
		return true
	}
	if abs(next.RSSI-last.RSSI) > f.cfg.StrengthDelta {
		return true
	}
	return next.Time.Sub(last.Time) >= f.cfg.TimeFloor
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
