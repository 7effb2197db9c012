package observer

import (
	"sort"
	"sync"
	"time"
)

// RegistrationEvent identifies what happened to a registry entry.
type RegistrationEvent uint8

const (
	// RegistrationAdded indicates an observer was registered.
	RegistrationAdded RegistrationEvent = 0

	// RegistrationRemoved indicates an observer was deregistered.
	RegistrationRemoved RegistrationEvent = 1

	// RegistrationUpdated indicates an observer's capabilities changed.
	RegistrationUpdated RegistrationEvent = 2
)

// String returns the event name.
func (e RegistrationEvent) String() string {
	switch e {
	case RegistrationAdded:
		return "ADDED"
	case RegistrationRemoved:
		return "REMOVED"
	case RegistrationUpdated:
		return "UPDATED"
	default:
		return "UNKNOWN"
	}
}

// Registration pairs a registration event with the observer it concerns.
type Registration struct {
	Event    RegistrationEvent
	Observer Observer
}

// entry is the mutable registry record for one observer.
type entry struct {
	id            string
	kind          Kind
	caps          Capabilities
	connecting    int
	quiet         bool
	lastDetection time.Time
	registeredAt  time.Time
}

func (e *entry) snapshot() Observer {
	return Observer{
		ID:            e.id,
		Kind:          e.kind,
		Capabilities:  e.caps,
		Scanning:      !e.quiet && e.connecting == 0,
		Connecting:    e.connecting,
		LastDetection: e.lastDetection,
		RegisteredAt:  e.registeredAt,
	}
}

// Registry tracks the set of currently-registered observers.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	// Registration callbacks keyed by observer id; "" matches all.
	callbacks map[string]map[uint64]func(Registration)
	nextCB    uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:   make(map[string]*entry),
		callbacks: make(map[string]map[uint64]func(Registration)),
	}
}

// Register adds an observer or replaces its capability record in place.
// A zero caps.Priority selects the default for the kind.
func (r *Registry) Register(id string, kind Kind, caps Capabilities) Observer {
	if caps.Priority == 0 {
		if kind == KindLocalAdapter {
			caps.Priority = DefaultLocalPriority
		} else {
			caps.Priority = DefaultRelayPriority
		}
	}

	r.mu.Lock()
	e := &entry{
		id:           id,
		kind:         kind,
		caps:         caps,
		registeredAt: time.Now(),
	}
	r.entries[id] = e
	snap := e.snapshot()
	cbs := r.callbacksFor(id)
	r.mu.Unlock()

	fire(cbs, Registration{Event: RegistrationAdded, Observer: snap})
	return snap
}

// Deregister removes an observer. Unknown ids are a no-op; the return
// value reports whether anything was removed.
func (r *Registry) Deregister(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	snap := e.snapshot()
	delete(r.entries, id)
	cbs := r.callbacksFor(id)
	r.mu.Unlock()

	fire(cbs, Registration{Event: RegistrationRemoved, Observer: snap})
	return true
}

// UpdateCapabilities replaces an observer's capabilities.
// Returns false if the observer is not registered.
func (r *Registry) UpdateCapabilities(id string, caps Capabilities) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if caps.Priority == 0 {
		caps.Priority = e.caps.Priority
	}
	e.caps = caps
	snap := e.snapshot()
	cbs := r.callbacksFor(id)
	r.mu.Unlock()

	fire(cbs, Registration{Event: RegistrationUpdated, Observer: snap})
	return true
}

// Get returns a snapshot of an observer.
func (r *Registry) Get(id string) (Observer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.snapshot(), true
	}
	return Observer{}, false
}

// ListOnline returns snapshots of all registered observers, sorted by id.
func (r *Registry) ListOnline() []Observer {
	r.mu.RLock()
	out := make([]Observer, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of registered observers. With connectableOnly
// set, only observers that can originate connections are counted.
func (r *Registry) Count(connectableOnly bool) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !connectableOnly {
		return len(r.entries)
	}
	n := 0
	for _, e := range r.entries {
		if e.caps.Connectable {
			n++
		}
	}
	return n
}

// MarkDetection records that an observer reported a sighting, clearing
// any watchdog quiet state.
func (r *Registry) MarkDetection(id string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.lastDetection = t
		e.quiet = false
	}
}

// BeginConnecting records the start of a connection attempt on an
// observer. While attempts are in flight the observer is not scanning.
func (r *Registry) BeginConnecting(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.connecting++
	}
}

// EndConnecting records the end of a connection attempt.
func (r *Registry) EndConnecting(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok && e.connecting > 0 {
		e.connecting--
	}
}

// IsScanning reports whether an observer is currently believed to be
// scanning. Unknown observers are not scanning.
func (r *Registry) IsScanning(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return !e.quiet && e.connecting == 0
	}
	return false
}

// CheckQuiet marks observers that have reported nothing within the
// timeout as not scanning. It returns the ids newly marked quiet.
// Observers that have never reported a detection are measured from
// their registration time.
func (r *Registry) CheckQuiet(now time.Time, timeout time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var quieted []string
	for id, e := range r.entries {
		if e.quiet {
			continue
		}
		last := e.lastDetection
		if last.IsZero() {
			last = e.registeredAt
		}
		if now.Sub(last) > timeout {
			e.quiet = true
			quieted = append(quieted, id)
		}
	}
	sort.Strings(quieted)
	return quieted
}

// OnRegistration registers a callback for registration events.
// An empty id matches every observer. The returned function removes the
// callback.
func (r *Registry) OnRegistration(cb func(Registration), id string) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextCB++
	key := r.nextCB
	set, ok := r.callbacks[id]
	if !ok {
		set = make(map[uint64]func(Registration))
		r.callbacks[id] = set
	}
	set[key] = cb

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if set, ok := r.callbacks[id]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(r.callbacks, id)
			}
		}
	}
}

// callbacksFor collects callbacks matching an observer id.
// Caller must hold r.mu.
func (r *Registry) callbacksFor(id string) []func(Registration) {
	var out []func(Registration)
	for _, key := range []string{id, ""} {
		for _, cb := range r.callbacks[key] {
			out = append(out, cb)
		}
	}
	return out
}

// fire invokes callbacks outside the registry lock.
func fire(cbs []func(Registration), reg Registration) {
	for _, cb := range cbs {
		cb(reg)
	}
}
