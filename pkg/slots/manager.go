package slots

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Slot allocation errors.
var (
	// ErrCapacityExhausted means every connectable candidate was
	// saturated or offline.
	ErrCapacityExhausted = errors.New("all connectable observers are at capacity")

	// ErrNoConnectableCandidate means no connectable observer currently
	// sees the device.
	ErrNoConnectableCandidate = errors.New("no connectable observer sees the device")
)

// Token is an opaque allocation handle bound to one granted slot.
type Token struct {
	// ID uniquely identifies the grant.
	ID uuid.UUID

	// Observer is the observer the slot was granted on.
	Observer string

	// Device is the device the connection attempt targets.
	Device string

	// Requester identifies the caller the grant is bound to.
	Requester string

	// GrantedAt is when the slot was granted.
	GrantedAt time.Time
}

// Allocation is a snapshot of one observer's slot ledger.
type Allocation struct {
	// Observer is the observer id.
	Observer string

	// Slots is the total capacity.
	Slots int

	// Free is the remaining capacity.
	Free int

	// Allocated lists the devices holding a slot, sorted.
	Allocated []string
}

// ledger tracks one observer's slot usage.
// Invariant: len(held) never exceeds capacity at grant time.
type ledger struct {
	capacity int
	held     map[uuid.UUID]Token
}

func (l *ledger) snapshot(observer string) Allocation {
	allocated := make([]string, 0, len(l.held))
	for _, tok := range l.held {
		allocated = append(allocated, tok.Device)
	}
	sort.Strings(allocated)
	free := l.capacity - len(l.held)
	if free < 0 {
		free = 0 // Capacity was lowered below current usage.
	}
	return Allocation{
		Observer:  observer,
		Slots:     l.capacity,
		Free:      free,
		Allocated: allocated,
	}
}

// Manager tracks remaining connection capacity per observer and
// arbitrates slot grants. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	ledgers map[string]*ledger

	// Allocation-change callbacks keyed by observer id; "" matches all.
	callbacks map[string]map[uint64]func(Allocation)
	nextCB    uint64

	onForcedRelease func(Token)
}

// NewManager creates an empty slot manager.
func NewManager() *Manager {
	return &Manager{
		ledgers:   make(map[string]*ledger),
		callbacks: make(map[string]map[uint64]func(Allocation)),
	}
}

// SetForcedReleaseHandler sets the handler told about each token
// invalidated by RemoveObserver.
func (m *Manager) SetForcedReleaseHandler(fn func(Token)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onForcedRelease = fn
}

// AddObserver creates or resizes an observer's ledger. Held tokens
// survive a resize; if capacity drops below current usage, new grants
// are refused until enough tokens drain.
func (m *Manager) AddObserver(observer string, capacity int) {
	if capacity < 0 {
		panic(fmt.Sprintf("slots: negative capacity %d for observer %s", capacity, observer))
	}

	m.mu.Lock()
	l, ok := m.ledgers[observer]
	if !ok {
		l = &ledger{held: make(map[uuid.UUID]Token)}
		m.ledgers[observer] = l
	}
	l.capacity = capacity
	snap := l.snapshot(observer)
	cbs := m.callbacksFor(observer)
	m.mu.Unlock()

	notify(cbs, snap)
}

// RemoveObserver drops an observer's ledger, force-releasing every
// outstanding token. The invalidated tokens are returned and the forced
// release handler is called for each.
func (m *Manager) RemoveObserver(observer string) []Token {
	m.mu.Lock()
	l, ok := m.ledgers[observer]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.ledgers, observer)

	tokens := make([]Token, 0, len(l.held))
	for _, tok := range l.held {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].GrantedAt.Before(tokens[j].GrantedAt) })

	handler := m.onForcedRelease
	cbs := m.callbacksFor(observer)
	m.mu.Unlock()

	if handler != nil {
		for _, tok := range tokens {
			handler(tok)
		}
	}
	notify(cbs, Allocation{Observer: observer})
	return tokens
}

// Request walks the ranked candidate observers and grants a slot on the
// first one with free capacity. Candidates without a ledger (offline)
// are skipped. An empty candidate list fails with
// ErrNoConnectableCandidate; a non-empty list with no grantable entry
// fails with ErrCapacityExhausted.
func (m *Manager) Request(device, requester string, candidates []string) (Token, error) {
	if len(candidates) == 0 {
		return Token{}, ErrNoConnectableCandidate
	}

	m.mu.Lock()
	for _, observer := range candidates {
		l, ok := m.ledgers[observer]
		if !ok || len(l.held) >= l.capacity {
			continue
		}
		tok := Token{
			ID:        uuid.New(),
			Observer:  observer,
			Device:    device,
			Requester: requester,
			GrantedAt: time.Now(),
		}
		l.held[tok.ID] = tok
		if len(l.held) > l.capacity {
			panic(fmt.Sprintf("slots: used count %d exceeds capacity %d on observer %s",
				len(l.held), l.capacity, observer))
		}
		snap := l.snapshot(observer)
		cbs := m.callbacksFor(observer)
		m.mu.Unlock()

		notify(cbs, snap)
		return tok, nil
	}
	m.mu.Unlock()
	return Token{}, ErrCapacityExhausted
}

// Release returns a slot. Unknown or already-released tokens are a
// no-op; the return value reports whether anything was released.
func (m *Manager) Release(tok Token) bool {
	m.mu.Lock()
	l, ok := m.ledgers[tok.Observer]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if _, held := l.held[tok.ID]; !held {
		m.mu.Unlock()
		return false
	}
	delete(l.held, tok.ID)
	snap := l.snapshot(tok.Observer)
	cbs := m.callbacksFor(tok.Observer)
	m.mu.Unlock()

	notify(cbs, snap)
	return true
}

// Used returns the number of held slots on an observer.
func (m *Manager) Used(observer string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[observer]; ok {
		return len(l.held)
	}
	return 0
}

// Allocations returns the allocation snapshot for one observer.
func (m *Manager) Allocations(observer string) (Allocation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[observer]; ok {
		return l.snapshot(observer), true
	}
	return Allocation{}, false
}

// AllAllocations returns snapshots for every observer, sorted by id.
func (m *Manager) AllAllocations() []Allocation {
	m.mu.Lock()
	out := make([]Allocation, 0, len(m.ledgers))
	for observer, l := range m.ledgers {
		out = append(out, l.snapshot(observer))
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Observer < out[j].Observer })
	return out
}

// OnAllocationChange registers a callback fired whenever an observer's
// allocation changes. An empty observer id matches every observer. The
// returned function removes the callback.
func (m *Manager) OnAllocationChange(cb func(Allocation), observer string) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextCB++
	key := m.nextCB
	set, ok := m.callbacks[observer]
	if !ok {
		set = make(map[uint64]func(Allocation))
		m.callbacks[observer] = set
	}
	set[key] = cb

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if set, ok := m.callbacks[observer]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(m.callbacks, observer)
			}
		}
	}
}

// callbacksFor collects callbacks matching an observer id.
// Caller must hold m.mu.
func (m *Manager) callbacksFor(observer string) []func(Allocation) {
	var out []func(Allocation)
	for _, key := range []string{observer, ""} {
		for _, cb := range m.callbacks[key] {
			out = append(out, cb)
		}
	}
	return out
}

// notify invokes callbacks outside the manager lock.
func notify(cbs []func(Allocation), snap Allocation) {
	for _, cb := range cbs {
		cb(snap)
	}
}
