package relay

import (
	"context"
	"log/slog"

	"github.com/blemux/blemux-go/pkg/core"
	"github.com/blemux/blemux-go/pkg/observer"
)

// EventSink consumes observer lifecycle events. *core.Manager satisfies
// it.
type EventSink interface {
	Apply(ev core.Event) error
}

// Bridge converts browsed relay announcements into observer
// online/offline events.
type Bridge struct {
	sink    EventSink
	browser *Browser
	logger  *slog.Logger
}

// NewBridge creates a bridge from the browser to the sink.
func NewBridge(sink EventSink, browser *Browser) *Bridge {
	return &Bridge{
		sink:    sink,
		browser: browser,
		logger:  slog.Default(),
	}
}

// SetLogger replaces the bridge's operational logger.
func (b *Bridge) SetLogger(l *slog.Logger) {
	if l != nil {
		b.logger = l
	}
}

// Run browses for relays until the context is cancelled, applying an
// online event for each appearing relay and an offline event when its
// last address disappears.
func (b *Bridge) Run(ctx context.Context) error {
	events, err := b.browser.Browse(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.handle(ev)
		}
	}
}

func (b *Bridge) handle(ev RelayEvent) {
	info := ev.Service.Info

	if ev.Gone {
		if err := b.sink.Apply(core.Event{
			Type:    core.EventObserverOffline,
			Offline: &core.OfflineEvent{Observer: info.ObserverID},
		}); err != nil {
			b.logger.Warn("failed to apply relay offline",
				"observer", info.ObserverID, "error", err)
		}
		return
	}

	if err := b.sink.Apply(core.Event{
		Type: core.EventObserverOnline,
		Online: &core.OnlineEvent{
			Observer: info.ObserverID,
			Kind:     observer.KindRemoteRelay,
			Capabilities: observer.Capabilities{
				Connectable:    info.Connectable,
				MaxConnections: info.Slots,
				Priority:       info.Priority,
				StaleWindow:    info.StaleWindow,
			},
		},
	}); err != nil {
		b.logger.Warn("failed to apply relay online",
			"observer", info.ObserverID, "error", err)
	}
}

// Compile-time interface satisfaction check.
var _ EventSink = (*core.Manager)(nil)
