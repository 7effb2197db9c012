package availability

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimeout is the availability timeout applied when no observer
// declares one and no interval has been learned.
const DefaultTimeout = 195 * time.Second

// Config holds engine configuration.
type Config struct {
	// OnUnavailable is called exactly once when a device's deadline
	// expires with no intervening reset. Called from the engine
	// goroutine; implementations must not block for long.
	OnUnavailable func(device string)
}

// armed is the live timer state for one device.
type armed struct {
	deadline time.Time
	gen      uint64
}

// heapEntry is a scheduled wakeup. Entries whose generation no longer
// matches the device's are stale and discarded on pop.
type heapEntry struct {
	device   string
	deadline time.Time
	gen      uint64
}

type deadlineHeap []heapEntry

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x any)         { *h = append(*h, x.(heapEntry)) }
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Engine runs the availability timeouts for all devices.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	devices map[string]*armed
	pending deadlineHeap

	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewEngine creates an engine. OnUnavailable must be set before Start.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:     cfg,
		devices: make(map[string]*armed),
		wake:    make(chan struct{}, 1),
	}
}

// Start begins background expiry processing.
func (e *Engine) Start() {
	if e.running.Swap(true) {
		return // Already running
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.wg.Add(1)
	go e.loop()
}

// Stop stops background processing. Armed state is retained, so a
// subsequent Start resumes where Stop left off.
func (e *Engine) Stop() {
	if !e.running.Swap(false) {
		return // Not running
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// OnSighting resets or extends the deadline for a device to
// now + max(timeout, current remaining). The longest timeout among
// observers still seeing the device always wins, so a short-timeout
// observer can never shorten an armed deadline.
func (e *Engine) OnSighting(device string, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)

	e.mu.Lock()
	a, ok := e.devices[device]
	if !ok {
		a = &armed{}
		e.devices[device] = a
	} else if deadline.Before(a.deadline) {
		// Extend-only: never pull an armed deadline closer.
		e.mu.Unlock()
		return
	}
	a.gen++
	a.deadline = deadline
	heap.Push(&e.pending, heapEntry{device: device, deadline: deadline, gen: a.gen})
	e.mu.Unlock()

	e.signal()
}

// Disarm cancels a device's timer without firing. Returns whether a
// timer was armed. Cancellation is lazy: the heap entry stays behind
// and is discarded when popped.
func (e *Engine) Disarm(device string) bool {
	e.mu.Lock()
	_, ok := e.devices[device]
	delete(e.devices, device)
	e.mu.Unlock()
	return ok
}

// ExpireNow fires a device's unavailability immediately if it is armed,
// as when its last record was pruned or its last observer deregistered.
// Returns whether the event fired.
func (e *Engine) ExpireNow(device string) bool {
	e.mu.Lock()
	_, ok := e.devices[device]
	delete(e.devices, device)
	cb := e.cfg.OnUnavailable
	e.mu.Unlock()

	if !ok {
		return false
	}
	if cb != nil {
		cb(device)
	}
	return true
}

// Deadline returns the armed deadline for a device.
func (e *Engine) Deadline(device string) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a, ok := e.devices[device]; ok {
		return a.deadline, true
	}
	return time.Time{}, false
}

// ArmedCount returns the number of armed devices.
func (e *Engine) ArmedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.devices)
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// loop waits for the earliest valid deadline, fires expiries, and
// reschedules. A reset that shortens the next wakeup arrives via wake.
func (e *Engine) loop() {
	defer e.wg.Done()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		expired := e.collectExpired(time.Now())
		cb := e.cfg.OnUnavailable
		if cb != nil {
			for _, device := range expired {
				cb(device)
			}
		}

		next, ok := e.nextDeadline()
		if ok {
			timer.Reset(time.Until(next))
		}

		select {
		case <-e.ctx.Done():
			if ok && !timer.Stop() {
				<-timer.C
			}
			return
		case <-e.wake:
			if ok && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timerC(timer, ok):
		}
	}
}

// timerC returns the timer channel only when a deadline is armed;
// otherwise the select blocks on wake/ctx alone.
func timerC(t *time.Timer, armed bool) <-chan time.Time {
	if !armed {
		return nil
	}
	return t.C
}

// collectExpired pops every entry due at or before now, returning the
// devices whose current generation actually expired.
func (e *Engine) collectExpired(now time.Time) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var expired []string
	for len(e.pending) > 0 && !e.pending[0].deadline.After(now) {
		entry := heap.Pop(&e.pending).(heapEntry)
		a, ok := e.devices[entry.device]
		if !ok || a.gen != entry.gen {
			continue // Lazily cancelled or superseded.
		}
		delete(e.devices, entry.device)
		expired = append(expired, entry.device)
	}
	return expired
}

// nextDeadline returns the earliest still-valid deadline, discarding
// stale heap heads along the way.
func (e *Engine) nextDeadline() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for len(e.pending) > 0 {
		head := e.pending[0]
		a, ok := e.devices[head.device]
		if !ok || a.gen != head.gen {
			heap.Pop(&e.pending)
			continue
		}
		return head.deadline, true
	}
	return time.Time{}, false
}
