package core

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blemux/blemux-go/pkg/arbiter"
	"github.com/blemux/blemux-go/pkg/availability"
	"github.com/blemux/blemux-go/pkg/dispatch"
	"github.com/blemux/blemux-go/pkg/observer"
	"github.com/blemux/blemux-go/pkg/sighting"
)

// DefaultPruneInterval is how often stale records are swept from the
// history.
const DefaultPruneInterval = 30 * time.Second

// Duration wraps time.Duration with YAML support for values like "90s"
// or "5m". Bare integers are interpreted as seconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalYAML encodes the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML decodes either a duration string or a bare number of
// seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %w", err)
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// Config aggregates every policy knob of the manager. The zero value of
// any field selects its default.
type Config struct {
	// SwitchThreshold is the arbitration hysteresis margin in dB.
	SwitchThreshold int `yaml:"switch_threshold"`

	// StrengthDelta is the minimum dB change the dedup filter forwards.
	StrengthDelta int `yaml:"strength_delta"`

	// TimeFloor is the maximum subscriber silence for an unchanged
	// device.
	TimeFloor Duration `yaml:"time_floor"`

	// FallbackStaleWindow is the record validity window when neither the
	// sighting, the observer, nor a learned interval supplies one.
	FallbackStaleWindow Duration `yaml:"fallback_stale_window"`

	// Wobble is added to learned advertising intervals to absorb relay
	// buffering jitter.
	Wobble Duration `yaml:"wobble"`

	// WatchdogInterval is how often observers are checked for quiet.
	WatchdogInterval Duration `yaml:"watchdog_interval"`

	// WatchdogTimeout is the quiet window after which an observer is
	// marked not scanning.
	WatchdogTimeout Duration `yaml:"watchdog_timeout"`

	// PruneInterval is how often stale records are swept.
	PruneInterval Duration `yaml:"prune_interval"`

	// QueueSize bounds the notification delivery queue.
	QueueSize int `yaml:"queue_size"`

	// Logger receives operational log output. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		SwitchThreshold:     arbiter.DefaultSwitchThreshold,
		StrengthDelta:       arbiter.DefaultStrengthDelta,
		TimeFloor:           Duration(arbiter.DefaultTimeFloor),
		FallbackStaleWindow: Duration(sighting.DefaultFallbackStaleWindow),
		Wobble:              Duration(availability.DefaultWobble),
		WatchdogInterval:    Duration(observer.DefaultWatchdogInterval),
		WatchdogTimeout:     Duration(observer.DefaultWatchdogTimeout),
		PruneInterval:       Duration(DefaultPruneInterval),
		QueueSize:           dispatch.DefaultQueueSize,
	}
}

// LoadConfig reads a Config from a YAML file. Fields absent from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults fills zero fields with their defaults.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SwitchThreshold <= 0 {
		c.SwitchThreshold = def.SwitchThreshold
	}
	if c.StrengthDelta <= 0 {
		c.StrengthDelta = def.StrengthDelta
	}
	if c.TimeFloor <= 0 {
		c.TimeFloor = def.TimeFloor
	}
	if c.FallbackStaleWindow <= 0 {
		c.FallbackStaleWindow = def.FallbackStaleWindow
	}
	if c.Wobble <= 0 {
		c.Wobble = def.Wobble
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = def.WatchdogInterval
	}
	if c.WatchdogTimeout <= 0 {
		c.WatchdogTimeout = def.WatchdogTimeout
	}
	if c.PruneInterval <= 0 {
		c.PruneInterval = def.PruneInterval
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
