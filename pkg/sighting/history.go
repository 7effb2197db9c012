package sighting

import (
	"sort"
	"sync"
	"time"
)

// DefaultFallbackStaleWindow is the validity window applied to records
// whose observer attached no TTL hint.
const DefaultFallbackStaleWindow = 195 * time.Second

// Config holds history configuration.
type Config struct {
	// FallbackStaleWindow is the validity window for records without a
	// TTL hint.
	FallbackStaleWindow time.Duration
}

// DefaultConfig returns the default history configuration.
func DefaultConfig() Config {
	return Config{
		FallbackStaleWindow: DefaultFallbackStaleWindow,
	}
}

// History keeps the most recent record per (device, observer) pair.
// It is safe for concurrent use.
type History struct {
	mu  sync.RWMutex
	cfg Config

	// records maps device -> observer -> most recent record.
	records map[string]map[string]*Record
}

// NewHistory creates an empty history.
func NewHistory(cfg Config) *History {
	if cfg.FallbackStaleWindow <= 0 {
		cfg.FallbackStaleWindow = DefaultFallbackStaleWindow
	}
	return &History{
		cfg:     cfg,
		records: make(map[string]map[string]*Record),
	}
}

// FallbackStaleWindow returns the configured fallback validity window.
func (h *History) FallbackStaleWindow() time.Duration {
	return h.cfg.FallbackStaleWindow
}

// Ingest upserts a record. It returns false and leaves the history
// untouched if the record's timestamp is older than the last accepted
// timestamp for the same (device, observer) pair. Equal timestamps are
// accepted so a pair's clock may stand still between sightings.
func (h *History) Ingest(rec Record) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	byObserver, ok := h.records[rec.Device]
	if !ok {
		byObserver = make(map[string]*Record)
		h.records[rec.Device] = byObserver
	}

	if prev, ok := byObserver[rec.Observer]; ok && rec.Time.Before(prev.Time) {
		return false
	}

	stored := rec
	byObserver[rec.Observer] = &stored
	return true
}

// Get returns the record for a (device, observer) pair, stale or not.
func (h *History) Get(device, observer string) (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rec, ok := h.records[device][observer]; ok {
		return *rec, true
	}
	return Record{}, false
}

// RecordsFor returns copies of the non-stale records for a device,
// sorted by observer id for determinism.
func (h *History) RecordsFor(device string, now time.Time) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	byObserver := h.records[device]
	if len(byObserver) == 0 {
		return nil
	}

	out := make([]Record, 0, len(byObserver))
	for _, rec := range byObserver {
		if rec.IsStale(now, h.cfg.FallbackStaleWindow) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Observer < out[j].Observer })
	return out
}

// MaxTTL returns the largest effective validity window among the
// non-stale records for a device, and false if none are live.
func (h *History) MaxTTL(device string, now time.Time) (time.Duration, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var max time.Duration
	found := false
	for _, rec := range h.records[device] {
		if rec.IsStale(now, h.cfg.FallbackStaleWindow) {
			continue
		}
		if w := rec.window(h.cfg.FallbackStaleWindow); !found || w > max {
			max = w
			found = true
		}
	}
	return max, found
}

// PruneStale removes stale records and returns the devices whose record
// set became empty as a result.
func (h *History) PruneStale(now time.Time) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var emptied []string
	for device, byObserver := range h.records {
		for observer, rec := range byObserver {
			if rec.IsStale(now, h.cfg.FallbackStaleWindow) {
				delete(byObserver, observer)
			}
		}
		if len(byObserver) == 0 {
			delete(h.records, device)
			emptied = append(emptied, device)
		}
	}
	sort.Strings(emptied)
	return emptied
}

// DropObserver removes every record contributed by an observer.
// It returns the devices that lost a record, and the subset whose
// record set became empty.
func (h *History) DropObserver(observer string) (affected, emptied []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for device, byObserver := range h.records {
		if _, ok := byObserver[observer]; !ok {
			continue
		}
		delete(byObserver, observer)
		affected = append(affected, device)
		if len(byObserver) == 0 {
			delete(h.records, device)
			emptied = append(emptied, device)
		}
	}
	sort.Strings(affected)
	sort.Strings(emptied)
	return affected, emptied
}

// DevicesFor returns the devices holding a record from the observer,
// sorted.
func (h *History) DevicesFor(observer string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []string
	for device, byObserver := range h.records {
		if _, ok := byObserver[observer]; ok {
			out = append(out, device)
		}
	}
	sort.Strings(out)
	return out
}

// DropPair removes the observer's record for one device. It reports
// whether a record was removed and whether the device's record set
// became empty as a result.
func (h *History) DropPair(device, observer string) (removed, emptied bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byObserver, ok := h.records[device]
	if !ok {
		return false, false
	}
	if _, ok := byObserver[observer]; !ok {
		return false, false
	}
	delete(byObserver, observer)
	if len(byObserver) == 0 {
		delete(h.records, device)
		return true, true
	}
	return true, false
}

// DropDevice removes all records for a device.
func (h *History) DropDevice(device string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.records, device)
}

// Devices returns the device identifiers with at least one record
// (stale or not), sorted.
func (h *History) Devices() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.records))
	for device := range h.records {
		out = append(out, device)
	}
	sort.Strings(out)
	return out
}

// DeviceCount returns the number of devices with at least one record.
func (h *History) DeviceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
