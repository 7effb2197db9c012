package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/blemux/blemux-go/pkg/sighting"
)

// DefaultQueueSize is the default bounded queue depth.
const DefaultQueueSize = 256

// Update carries the arbiter-chosen record for a device.
type Update struct {
	// Device is the device identifier.
	Device string

	// Record is the record chosen by arbitration. Its Connectable flag
	// reflects whether any connectable path to the device exists, which
	// may be broader than the chosen observer's own sighting.
	Record sighting.Record
}

// Subscriber receives arbitration decisions. Implementations must not
// perform long blocking work inline; they share one delivery goroutine.
type Subscriber interface {
	// SightingUpdated is called when a device's chosen record changes
	// materially or its active observer switches.
	SightingUpdated(u Update)

	// Unavailable is called when no observer has seen the device
	// within its availability timeout.
	Unavailable(device string)
}

// Filter selects which events a subscriber receives.
// The zero value matches everything.
type Filter struct {
	// Device restricts delivery to one device id. Empty matches all.
	Device string

	// ConnectableOnly restricts updates to records with a connectable
	// path. Unavailability events are unaffected.
	ConnectableOnly bool

	// Predicate, if set, must return true for an update to be
	// delivered. It is not consulted for unavailability events.
	Predicate func(Update) bool
}

func (f *Filter) matchesUpdate(u Update) bool {
	if f.Device != "" && f.Device != u.Device {
		return false
	}
	if f.ConnectableOnly && !u.Record.Connectable {
		return false
	}
	if f.Predicate != nil && !f.Predicate(u) {
		return false
	}
	return true
}

func (f *Filter) matchesUnavailable(device string) bool {
	return f.Device == "" || f.Device == device
}

// Config holds dispatcher configuration.
type Config struct {
	// QueueSize bounds the delivery queue. Events beyond it are
	// dropped, not blocked on.
	QueueSize int
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{QueueSize: DefaultQueueSize}
}

// event is a queued delivery.
type event struct {
	update      *Update
	unavailable string
}

// subscription pairs a subscriber with its filter.
type subscription struct {
	sub    Subscriber
	filter Filter
}

// Dispatcher delivers events to subscribers from a single worker.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64

	queue   chan event
	dropped atomic.Uint64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Dispatcher{
		subs:  make(map[uint64]*subscription),
		queue: make(chan event, cfg.QueueSize),
	}
}

// Start begins background delivery.
func (d *Dispatcher) Start() {
	if d.running.Swap(true) {
		return // Already running
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.wg.Add(1)
	go d.deliverLoop()
}

// Stop stops background delivery. Queued events not yet delivered are
// discarded.
func (d *Dispatcher) Stop() {
	if !d.running.Swap(false) {
		return // Not running
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Subscribe registers a subscriber. The returned function removes it.
func (d *Dispatcher) Subscribe(sub Subscriber, filter Filter) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs[id] = &subscription{sub: sub, filter: filter}
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

// SubscriberCount returns the number of registered subscribers.
func (d *Dispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// PublishUpdate queues a sighting update. Never blocks; a full queue
// drops the event and bumps the drop counter.
func (d *Dispatcher) PublishUpdate(u Update) {
	select {
	case d.queue <- event{update: &u}:
	default:
		d.dropped.Add(1)
	}
}

// PublishUnavailable queues an unavailability event.
func (d *Dispatcher) PublishUnavailable(device string) {
	select {
	case d.queue <- event{unavailable: device}:
	default:
		d.dropped.Add(1)
	}
}

// Dropped returns the number of events dropped on queue overflow.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *Dispatcher) deliverLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case ev := <-d.queue:
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher) deliver(ev event) {
	d.mu.RLock()
	targets := make([]*subscription, 0, len(d.subs))
	for _, s := range d.subs {
		targets = append(targets, s)
	}
	d.mu.RUnlock()

	for _, s := range targets {
		if ev.update != nil {
			if s.filter.matchesUpdate(*ev.update) {
				s.sub.SightingUpdated(*ev.update)
			}
			continue
		}
		if s.filter.matchesUnavailable(ev.unavailable) {
			s.sub.Unavailable(ev.unavailable)
		}
	}
}
