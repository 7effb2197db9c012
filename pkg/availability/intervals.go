package availability

import (
	"sync"
	"time"
)

const (
	// intervalSamples is how many consecutive sightings from one
	// observer are needed before an interval is considered learned.
	intervalSamples = 16

	// DefaultWobble absorbs relay buffering jitter on top of a learned
	// interval when it is used as an availability timeout.
	DefaultWobble = 5 * time.Second
)

// Tracker learns per-device advertising intervals from the gaps between
// consecutive sightings reported by a single observer. Sightings from a
// different observer restart the measurement, since relays batch and
// delay deliveries differently.
type Tracker struct {
	mu sync.Mutex

	// learned maps device -> learned advertising interval.
	learned map[string]time.Duration

	// fallback maps device -> caller-supplied override used when no
	// interval has been learned.
	fallback map[string]time.Duration

	// sources maps device -> the observer the current timing run came from.
	sources map[string]string

	// timings maps device -> sighting times collected so far.
	timings map[string][]time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		learned:  make(map[string]time.Duration),
		fallback: make(map[string]time.Duration),
		sources:  make(map[string]string),
		timings:  make(map[string][]time.Time),
	}
}

// Collect feeds one sighting into the tracker. Once enough samples from
// a single observer accumulate, the interval is fixed at the largest gap
// seen and collection stops for that device.
func (t *Tracker) Collect(device, observer string, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, done := t.learned[device]; done {
		return
	}

	if t.sources[device] != observer {
		t.sources[device] = observer
		t.timings[device] = t.timings[device][:0]
	}

	times := append(t.timings[device], ts)
	if len(times) < intervalSamples {
		t.timings[device] = times
		return
	}

	var max time.Duration
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap > max {
			max = gap
		}
	}
	if max > 0 {
		t.learned[device] = max
	}
	delete(t.timings, device)
	delete(t.sources, device)
}

// Learned returns the learned interval for a device.
func (t *Tracker) Learned(device string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.learned[device]
	return d, ok
}

// IntervalFor returns the learned interval for a device, or its
// fallback override.
func (t *Tracker) IntervalFor(device string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.learned[device]; ok {
		return d, true
	}
	d, ok := t.fallback[device]
	return d, ok
}

// SetFallback overrides the interval used for a device until one is
// learned. A non-positive duration clears the override.
func (t *Tracker) SetFallback(device string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d <= 0 {
		delete(t.fallback, device)
		return
	}
	t.fallback[device] = d
}

// Fallback returns the fallback override for a device.
func (t *Tracker) Fallback(device string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.fallback[device]
	return d, ok
}

// RemoveDevice forgets everything about a device, including its
// fallback override.
func (t *Tracker) RemoveDevice(device string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.learned, device)
	delete(t.fallback, device)
	delete(t.sources, device)
	delete(t.timings, device)
}

// RemoveObserver discards in-progress timing runs sourced from an
// observer. Learned intervals survive; the advertising cadence belongs
// to the device, not the observer that measured it.
func (t *Tracker) RemoveObserver(observer string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for device, src := range t.sources {
		if src == observer {
			delete(t.sources, device)
			delete(t.timings, device)
		}
	}
}
