package observer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Watchdog timing defaults, matching typical scan-report cadence.
const (
	DefaultWatchdogInterval = 30 * time.Second
	DefaultWatchdogTimeout  = 90 * time.Second
)

// WatchdogConfig configures the quiet-window watchdog.
type WatchdogConfig struct {
	// Interval is how often registered observers are checked.
	Interval time.Duration

	// Timeout is the quiet window after which an observer is marked
	// not scanning.
	Timeout time.Duration

	// OnQuiet, if set, is called with the ids newly marked quiet on
	// each sweep that finds any.
	OnQuiet func(ids []string)
}

// DefaultWatchdogConfig returns the default watchdog configuration.
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		Interval: DefaultWatchdogInterval,
		Timeout:  DefaultWatchdogTimeout,
	}
}

// Watchdog periodically sweeps a registry for observers that have gone
// quiet. A quiet observer stays registered but stops being preferred by
// arbitration until it reports again.
type Watchdog struct {
	registry *Registry
	cfg      WatchdogConfig

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWatchdog creates a watchdog for the registry.
func NewWatchdog(registry *Registry, cfg WatchdogConfig) *Watchdog {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultWatchdogInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWatchdogTimeout
	}
	return &Watchdog{registry: registry, cfg: cfg}
}

// Start begins background sweeping.
func (w *Watchdog) Start() {
	if w.running.Swap(true) {
		return // Already running
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.wg.Add(1)
	go w.loop()
}

// Stop stops background sweeping.
func (w *Watchdog) Stop() {
	if !w.running.Swap(false) {
		return // Not running
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Sweep runs one check immediately and returns the newly quiet ids.
func (w *Watchdog) Sweep(now time.Time) []string {
	quieted := w.registry.CheckQuiet(now, w.cfg.Timeout)
	if len(quieted) > 0 && w.cfg.OnQuiet != nil {
		w.cfg.OnQuiet(quieted)
	}
	return quieted
}

func (w *Watchdog) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(time.Now())
		}
	}
}
