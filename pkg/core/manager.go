package core

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blemux/blemux-go/pkg/arbiter"
	"github.com/blemux/blemux-go/pkg/availability"
	"github.com/blemux/blemux-go/pkg/dispatch"
	"github.com/blemux/blemux-go/pkg/observer"
	"github.com/blemux/blemux-go/pkg/sighting"
	"github.com/blemux/blemux-go/pkg/slots"
	"github.com/blemux/blemux-go/pkg/tracelog"
)

// Manager errors.
var (
	// ErrUnknownObserver means a sighting arrived from an observer that
	// is not registered.
	ErrUnknownObserver = errors.New("observer is not registered")

	// ErrMalformedEvent means an event's payload pointer does not match
	// its type.
	ErrMalformedEvent = errors.New("event payload does not match its type")
)

// lockStripes is the number of per-device lock stripes. Events for
// devices on different stripes proceed in parallel.
const lockStripes = 64

// Prefilter inspects a sighting before ingestion. Returning false drops
// the sighting without touching any state.
type Prefilter func(rec sighting.Record) bool

// deviceState is the arbitration state for one device.
// All fields are guarded by the device's lock stripe.
type deviceState struct {
	anyState  arbiter.State
	connState arbiter.State

	// lastNotified is the record last forwarded to subscribers, with
	// its connectable flag already upgraded to the connectable-path view.
	lastNotified *sighting.Record
}

// Diagnostics is a point-in-time snapshot of manager internals.
type Diagnostics struct {
	// Devices is the number of devices with at least one record.
	Devices int

	// Observers is the number of registered observers.
	Observers int

	// ConnectableObservers is the subset able to originate connections.
	ConnectableObservers int

	// ArmedTimers is the number of devices with a live availability
	// deadline.
	ArmedTimers int

	// Subscribers is the number of registered subscribers.
	Subscribers int

	// DroppedEvents counts notifications dropped on queue overflow.
	DroppedEvents uint64

	// Allocations is the slot ledger snapshot per observer.
	Allocations []slots.Allocation
}

// Manager runs the presence arbitration pipeline.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	registry   *observer.Registry
	history    *sighting.History
	policy     arbiter.Policy
	filter     *arbiter.Filter
	engine     *availability.Engine
	tracker    *availability.Tracker
	slots      *slots.Manager
	dispatcher *dispatch.Dispatcher
	watchdog   *observer.Watchdog

	stripes [lockStripes]sync.Mutex

	stateMu sync.Mutex
	states  map[string]*deviceState

	hookMu    sync.RWMutex
	prefilter Prefilter
	trace     tracelog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewManager creates a manager with the given configuration.
func NewManager(cfg Config) *Manager {
	cfg = cfg.withDefaults()

	m := &Manager{
		cfg:    cfg,
		logger: cfg.Logger,
		states: make(map[string]*deviceState),
		trace:  tracelog.NoopLogger{},
	}

	m.registry = observer.NewRegistry()
	m.history = sighting.NewHistory(sighting.Config{
		FallbackStaleWindow: cfg.FallbackStaleWindow.Std(),
	})
	m.policy = arbiter.Policy{SwitchThreshold: cfg.SwitchThreshold}
	m.filter = arbiter.NewFilter(arbiter.FilterConfig{
		StrengthDelta: cfg.StrengthDelta,
		TimeFloor:     cfg.TimeFloor.Std(),
	})
	m.tracker = availability.NewTracker()
	m.engine = availability.NewEngine(availability.Config{
		OnUnavailable: m.handleUnavailable,
	})
	m.slots = slots.NewManager()
	m.slots.SetForcedReleaseHandler(m.handleForcedRelease)
	m.dispatcher = dispatch.NewDispatcher(dispatch.Config{QueueSize: cfg.QueueSize})
	m.watchdog = observer.NewWatchdog(m.registry, observer.WatchdogConfig{
		Interval: cfg.WatchdogInterval.Std(),
		Timeout:  cfg.WatchdogTimeout.Std(),
		OnQuiet:  m.handleQuiet,
	})
	return m
}

// Start begins background processing: availability expiry, notification
// delivery, the scanner watchdog, and the stale-record sweep.
func (m *Manager) Start() {
	if m.running.Swap(true) {
		return // Already running
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.engine.Start()
	m.dispatcher.Start()
	m.watchdog.Start()
	m.wg.Add(1)
	go m.pruneLoop()
	m.logger.Info("manager started")
}

// Stop stops background processing. Accumulated state is retained.
func (m *Manager) Stop() {
	if !m.running.Swap(false) {
		return // Not running
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.watchdog.Stop()
	m.dispatcher.Stop()
	m.engine.Stop()
	m.logger.Info("manager stopped")
}

// SetPrefilter installs a hook consulted before every sighting ingest.
// A nil prefilter accepts everything.
func (m *Manager) SetPrefilter(f Prefilter) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.prefilter = f
}

// SetTraceLogger installs the decision trace sink. Pass nil to disable.
func (m *Manager) SetTraceLogger(l tracelog.Logger) {
	if l == nil {
		l = tracelog.NoopLogger{}
	}
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.trace = l
}

// Apply consumes one event. Sightings from unregistered observers fail
// with ErrUnknownObserver; out-of-order sightings are silently dropped.
func (m *Manager) Apply(ev Event) error {
	switch ev.Type {
	case EventSighting:
		if ev.Sighting == nil {
			return ErrMalformedEvent
		}
		return m.applySighting(ev.Sighting)
	case EventObserverOnline:
		if ev.Online == nil {
			return ErrMalformedEvent
		}
		return m.applyOnline(ev.Online)
	case EventObserverOffline:
		if ev.Offline == nil {
			return ErrMalformedEvent
		}
		return m.applyOffline(ev.Offline)
	default:
		return ErrMalformedEvent
	}
}

func (m *Manager) applySighting(ev *SightingEvent) error {
	now := time.Now()
	ts := ev.Time
	if ts.IsZero() {
		ts = now
	}

	rec := sighting.Record{
		Device:      ev.Device,
		Observer:    ev.Observer,
		RSSI:        ev.RSSI,
		Connectable: ev.Connectable,
		Payload:     ev.Payload,
		TTL:         ev.TTL,
		Time:        ts,
	}
	if len(rec.Payload) > 0 {
		rec.Fingerprint = sighting.ComputeFingerprint(rec.Payload)
	}

	if f := m.getPrefilter(); f != nil && !f(rec) {
		m.traceSighting(rec, false)
		return nil
	}

	// The registry check, ingest, re-arbitration, and timer reset form
	// one unit under the device's lock stripe; offline cleanup takes the
	// same stripe per device.
	lk := m.lockFor(ev.Device)
	lk.Lock()

	obs, ok := m.registry.Get(ev.Observer)
	if !ok {
		lk.Unlock()
		m.traceSighting(rec, false)
		m.logger.Debug("sighting from unknown observer",
			"observer", ev.Observer, "device", ev.Device)
		return ErrUnknownObserver
	}

	// Derive the validity window: sighting TTL, then the observer's
	// stale window, then the learned advertising interval plus wobble.
	// Zero falls back to the history's fallback window.
	if rec.TTL <= 0 {
		rec.TTL = obs.Capabilities.StaleWindow
	}
	if rec.TTL <= 0 {
		if iv, ok := m.tracker.IntervalFor(ev.Device); ok {
			rec.TTL = iv + m.cfg.Wobble.Std()
		}
	}

	if !m.history.Ingest(rec) {
		lk.Unlock()
		m.traceSighting(rec, false)
		return nil
	}

	// An observer deregistered after the first check may have run its
	// offline cleanup before this record landed. Re-checking after the
	// ingest guarantees one side sees the other: either the cleanup
	// finds the record, or the deregistration is visible here and the
	// ingest is undone.
	if _, ok := m.registry.Get(ev.Observer); !ok {
		m.history.DropPair(ev.Device, ev.Observer)
		lk.Unlock()
		m.traceSighting(rec, false)
		m.logger.Debug("sighting from unknown observer",
			"observer", ev.Observer, "device", ev.Device)
		return ErrUnknownObserver
	}

	m.registry.MarkDetection(ev.Observer, ts)
	m.tracker.Collect(ev.Device, ev.Observer, ts)
	m.rearbitrate(ev.Device, now)
	if ttl, ok := m.history.MaxTTL(ev.Device, now); ok {
		m.engine.OnSighting(ev.Device, ttl)
	}
	lk.Unlock()

	m.traceSighting(rec, true)
	return nil
}

func (m *Manager) applyOnline(ev *OnlineEvent) error {
	snap := m.registry.Register(ev.Observer, ev.Kind, ev.Capabilities)
	m.slots.AddObserver(ev.Observer, ev.Capabilities.MaxConnections)

	m.emitTrace(tracelog.Event{
		Timestamp: time.Now(),
		Category:  tracelog.CategoryRegistry,
		Observer:  ev.Observer,
		Registry: &tracelog.RegistryEvent{
			Op:   observer.RegistrationAdded.String(),
			Kind: ev.Kind.String(),
		},
	})
	m.logger.Info("observer online",
		"observer", ev.Observer,
		"kind", ev.Kind.String(),
		"connectable", snap.Capabilities.Connectable,
		"slots", snap.Capabilities.MaxConnections)
	return nil
}

func (m *Manager) applyOffline(ev *OfflineEvent) error {
	if !m.registry.Deregister(ev.Observer) {
		return nil // Idempotent.
	}

	m.slots.RemoveObserver(ev.Observer)
	m.tracker.RemoveObserver(ev.Observer)

	// Drop the observer's records device by device under each device's
	// lock stripe, so no ingest interleaves with the cleanup of its
	// device.
	now := time.Now()
	var affected, emptied []string
	for _, device := range m.history.DevicesFor(ev.Observer) {
		lk := m.lockFor(device)
		lk.Lock()
		removed, empty := m.history.DropPair(device, ev.Observer)
		if removed && !empty {
			m.rearbitrate(device, now)
		}
		lk.Unlock()
		if !removed {
			continue
		}
		affected = append(affected, device)
		if empty {
			emptied = append(emptied, device)
			if !m.engine.ExpireNow(device) {
				m.handleUnavailable(device)
			}
		}
	}

	m.emitTrace(tracelog.Event{
		Timestamp: now,
		Category:  tracelog.CategoryRegistry,
		Observer:  ev.Observer,
		Registry: &tracelog.RegistryEvent{
			Op: observer.RegistrationRemoved.String(),
		},
	})
	m.logger.Info("observer offline",
		"observer", ev.Observer,
		"affected_devices", len(affected),
		"emptied_devices", len(emptied))
	return nil
}

// rearbitrate recomputes both views for a device and notifies
// subscribers when the outcome is materially different.
// Caller must hold the device's lock stripe.
func (m *Manager) rearbitrate(device string, now time.Time) {
	records := m.history.RecordsFor(device, now)
	cands := m.candidates(records)
	st := m.stateFor(device)

	prevAny := st.anyState
	prevConn := st.connState
	newAny, changedAny := arbiter.Choose(prevAny, cands, arbiter.ModeAny, m.policy, now)
	newConn, changedConn := arbiter.Choose(prevConn, cands, arbiter.ModeConnectable, m.policy, now)
	st.anyState = newAny
	st.connState = newConn

	if changedAny {
		m.traceSwitch(device, prevAny, newAny, arbiter.ModeAny)
	}
	if changedConn {
		m.traceSwitch(device, prevConn, newConn, arbiter.ModeConnectable)
	}

	if newAny.IsZero() {
		st.lastNotified = nil
		return
	}

	var chosen sighting.Record
	for _, rec := range records {
		if rec.Observer == newAny.Observer {
			chosen = rec
			break
		}
	}
	// A non-connectable winning sighting still represents a connectable
	// device when some other observer has a connectable path.
	if !newConn.IsZero() {
		chosen.Connectable = true
	}

	if changedAny || m.filter.ShouldNotify(st.lastNotified, chosen) {
		kept := chosen
		st.lastNotified = &kept
		m.dispatcher.PublishUpdate(dispatch.Update{Device: device, Record: chosen})
		m.emitTrace(tracelog.Event{
			Timestamp: now,
			Category:  tracelog.CategoryNotify,
			Device:    device,
			Observer:  chosen.Observer,
			Notify: &tracelog.NotifyEvent{
				RSSI:        chosen.RSSI,
				Connectable: chosen.Connectable,
			},
		})
	}
}

// candidates joins history records with registry metadata.
func (m *Manager) candidates(records []sighting.Record) []arbiter.Candidate {
	out := make([]arbiter.Candidate, 0, len(records))
	for _, rec := range records {
		c := arbiter.Candidate{Record: rec}
		if obs, ok := m.registry.Get(rec.Observer); ok {
			c.Priority = obs.Capabilities.Priority
			c.Scanning = obs.Scanning
		}
		out = append(out, c)
	}
	return out
}

// handleUnavailable runs when a device's availability deadline expires.
// Called from the engine goroutine and from offline/prune cleanup. A
// sighting that raced the expiry leaves live records behind; the device
// is then re-armed instead of dropped, and nothing is published.
func (m *Manager) handleUnavailable(device string) {
	now := time.Now()
	lk := m.lockFor(device)
	lk.Lock()
	if len(m.history.RecordsFor(device, now)) > 0 {
		if ttl, ok := m.history.MaxTTL(device, now); ok {
			m.engine.OnSighting(device, ttl)
		}
		lk.Unlock()
		return
	}
	m.history.DropDevice(device)
	m.stateMu.Lock()
	delete(m.states, device)
	m.stateMu.Unlock()
	lk.Unlock()

	m.tracker.RemoveDevice(device)
	m.dispatcher.PublishUnavailable(device)
	m.emitTrace(tracelog.Event{
		Timestamp:    time.Now(),
		Category:     tracelog.CategoryAvailability,
		Device:       device,
		Availability: &tracelog.AvailabilityEvent{Fired: true},
	})
	m.logger.Debug("device unavailable", "device", device)
}

// handleForcedRelease runs for each token invalidated by an observer
// going offline.
func (m *Manager) handleForcedRelease(tok slots.Token) {
	m.registry.EndConnecting(tok.Observer)
	m.emitTrace(tracelog.Event{
		Timestamp: time.Now(),
		Category:  tracelog.CategorySlots,
		Device:    tok.Device,
		Observer:  tok.Observer,
		Slot: &tracelog.SlotEvent{
			Op:    tracelog.SlotForcedRelease,
			Token: tok.ID.String(),
		},
	})
	m.logger.Warn("slot force-released",
		"observer", tok.Observer, "device", tok.Device)
}

// handleQuiet runs when the watchdog marks observers quiet.
func (m *Manager) handleQuiet(ids []string) {
	m.logger.Warn("observers went quiet", "observers", ids)
}

// RequestSlot reserves a connection slot for a device. The walk is
// always connectable-required, whatever mode arbitration runs in: only
// observers holding a live connectable record for the device are
// candidates. It tries preferred first (when it sees the device
// connectably), then the connectable-view winner, then the remaining
// connectable observers by strength. Pass an empty preferred id for no
// preference.
func (m *Manager) RequestSlot(device, preferred, requester string) (slots.Token, error) {
	now := time.Now()
	records := m.history.RecordsFor(device, now)

	type connCand struct {
		observer string
		rssi     int
		priority int
	}
	var conn []connCand
	connSet := make(map[string]bool)
	for _, rec := range records {
		if !rec.Connectable {
			continue
		}
		obs, ok := m.registry.Get(rec.Observer)
		if !ok || !obs.Capabilities.Connectable {
			continue
		}
		conn = append(conn, connCand{
			observer: rec.Observer,
			rssi:     rec.RSSI,
			priority: obs.Capabilities.Priority,
		})
		connSet[rec.Observer] = true
	}
	sort.Slice(conn, func(i, j int) bool {
		if conn[i].rssi != conn[j].rssi {
			return conn[i].rssi > conn[j].rssi
		}
		if conn[i].priority != conn[j].priority {
			return conn[i].priority > conn[j].priority
		}
		return conn[i].observer < conn[j].observer
	})

	lk := m.lockFor(device)
	lk.Lock()
	winner := m.stateFor(device).connState.Observer
	lk.Unlock()

	var ranked []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && connSet[id] && !seen[id] {
			seen[id] = true
			ranked = append(ranked, id)
		}
	}
	add(preferred)
	add(winner)
	for _, c := range conn {
		add(c.observer)
	}

	tok, err := m.slots.Request(device, requester, ranked)
	if err != nil {
		m.emitTrace(tracelog.Event{
			Timestamp: now,
			Category:  tracelog.CategorySlots,
			Device:    device,
			Slot: &tracelog.SlotEvent{
				Op:     tracelog.SlotDenied,
				Reason: err.Error(),
			},
		})
		return slots.Token{}, err
	}

	m.registry.BeginConnecting(tok.Observer)
	free := 0
	if alloc, ok := m.slots.Allocations(tok.Observer); ok {
		free = alloc.Free
	}
	m.emitTrace(tracelog.Event{
		Timestamp: now,
		Category:  tracelog.CategorySlots,
		Device:    device,
		Observer:  tok.Observer,
		Slot: &tracelog.SlotEvent{
			Op:    tracelog.SlotGranted,
			Token: tok.ID.String(),
			Free:  free,
		},
	})
	m.logger.Debug("slot granted",
		"observer", tok.Observer, "device", device, "free", free)
	return tok, nil
}

// ReleaseSlot returns a granted slot. Already-released or invalidated
// tokens are a no-op.
func (m *Manager) ReleaseSlot(tok slots.Token) bool {
	if !m.slots.Release(tok) {
		return false
	}
	m.registry.EndConnecting(tok.Observer)

	free := 0
	if alloc, ok := m.slots.Allocations(tok.Observer); ok {
		free = alloc.Free
	}
	m.emitTrace(tracelog.Event{
		Timestamp: time.Now(),
		Category:  tracelog.CategorySlots,
		Device:    tok.Device,
		Observer:  tok.Observer,
		Slot: &tracelog.SlotEvent{
			Op:    tracelog.SlotReleased,
			Token: tok.ID.String(),
			Free:  free,
		},
	})
	return true
}

// Subscribe registers a subscriber for arbitrated updates and
// unavailability events. The returned function removes it.
func (m *Manager) Subscribe(sub dispatch.Subscriber, filter dispatch.Filter) func() {
	return m.dispatcher.Subscribe(sub, filter)
}

// BestRecord returns the current winning record for a device in the
// given mode. The any-mode record carries the connectable-path view of
// the Connectable flag.
func (m *Manager) BestRecord(device string, mode arbiter.Mode) (sighting.Record, bool) {
	lk := m.lockFor(device)
	lk.Lock()
	defer lk.Unlock()

	st := m.stateFor(device)
	state := st.anyState
	if mode == arbiter.ModeConnectable {
		state = st.connState
	}
	if state.IsZero() {
		return sighting.Record{}, false
	}

	rec, ok := m.history.Get(device, state.Observer)
	if !ok || rec.IsStale(time.Now(), m.history.FallbackStaleWindow()) {
		return sighting.Record{}, false
	}
	if mode == arbiter.ModeAny && !st.connState.IsZero() {
		rec.Connectable = true
	}
	return rec, true
}

// Present reports whether any observer currently has a live record for
// the device.
func (m *Manager) Present(device string) bool {
	return len(m.history.RecordsFor(device, time.Now())) > 0
}

// DiscoveredDevices returns the devices with at least one record.
func (m *Manager) DiscoveredDevices() []string {
	return m.history.Devices()
}

// Observers returns snapshots of all registered observers.
func (m *Manager) Observers() []observer.Observer {
	return m.registry.ListOnline()
}

// ObserverCount returns the number of registered observers, optionally
// restricted to those able to originate connections.
func (m *Manager) ObserverCount(connectableOnly bool) int {
	return m.registry.Count(connectableOnly)
}

// OnRegistration registers a callback for observer registration events.
// An empty id matches every observer.
func (m *Manager) OnRegistration(cb func(observer.Registration), id string) func() {
	return m.registry.OnRegistration(cb, id)
}

// OnAllocationChange registers a callback for slot allocation changes.
// An empty observer id matches every observer.
func (m *Manager) OnAllocationChange(cb func(slots.Allocation), observerID string) func() {
	return m.slots.OnAllocationChange(cb, observerID)
}

// Allocations returns the slot ledger snapshot for every observer.
func (m *Manager) Allocations() []slots.Allocation {
	return m.slots.AllAllocations()
}

// SetFallbackInterval overrides the advertising interval assumed for a
// device until one is learned. Non-positive clears the override.
func (m *Manager) SetFallbackInterval(device string, d time.Duration) {
	m.tracker.SetFallback(device, d)
}

// LearnedInterval returns the learned advertising interval for a device.
func (m *Manager) LearnedInterval(device string) (time.Duration, bool) {
	return m.tracker.Learned(device)
}

// Diagnostics returns a snapshot of manager internals.
func (m *Manager) Diagnostics() Diagnostics {
	return Diagnostics{
		Devices:              m.history.DeviceCount(),
		Observers:            m.registry.Count(false),
		ConnectableObservers: m.registry.Count(true),
		ArmedTimers:          m.engine.ArmedCount(),
		Subscribers:          m.dispatcher.SubscriberCount(),
		DroppedEvents:        m.dispatcher.Dropped(),
		Allocations:          m.slots.AllAllocations(),
	}
}

// pruneLoop periodically sweeps stale records. Devices emptied by the
// sweep are declared unavailable immediately.
func (m *Manager) pruneLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.PruneInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			emptied := m.history.PruneStale(time.Now())
			for _, device := range emptied {
				if !m.engine.ExpireNow(device) {
					m.handleUnavailable(device)
				}
			}
		}
	}
}

// lockFor returns the lock stripe for a device.
func (m *Manager) lockFor(device string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(device))
	return &m.stripes[h.Sum32()%lockStripes]
}

// stateFor returns the device's arbitration state, creating it if
// needed. The returned state's fields are guarded by the device's lock
// stripe.
func (m *Manager) stateFor(device string) *deviceState {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	st, ok := m.states[device]
	if !ok {
		st = &deviceState{}
		m.states[device] = st
	}
	return st
}

func (m *Manager) getPrefilter() Prefilter {
	m.hookMu.RLock()
	defer m.hookMu.RUnlock()
	return m.prefilter
}

func (m *Manager) emitTrace(ev tracelog.Event) {
	m.hookMu.RLock()
	l := m.trace
	m.hookMu.RUnlock()
	l.Log(ev)
}

func (m *Manager) traceSighting(rec sighting.Record, accepted bool) {
	ev := tracelog.Event{
		Timestamp: time.Now(),
		Category:  tracelog.CategorySighting,
		Device:    rec.Device,
		Observer:  rec.Observer,
		Sighting: &tracelog.SightingEvent{
			RSSI:        rec.RSSI,
			Connectable: rec.Connectable,
			Accepted:    accepted,
		},
	}
	if !rec.Fingerprint.IsZero() {
		ev.Sighting.Fingerprint = rec.Fingerprint.String()
	}
	m.emitTrace(ev)
}

func (m *Manager) traceSwitch(device string, from, to arbiter.State, mode arbiter.Mode) {
	m.emitTrace(tracelog.Event{
		Timestamp: time.Now(),
		Category:  tracelog.CategoryArbitration,
		Device:    device,
		Observer:  to.Observer,
		Switch: &tracelog.SwitchEvent{
			From:     from.Observer,
			To:       to.Observer,
			FromRSSI: from.RSSI,
			ToRSSI:   to.RSSI,
			Mode:     mode.String(),
		},
	})
}
