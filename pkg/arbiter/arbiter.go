package arbiter

import (
	"time"

	"github.com/blemux/blemux-go/pkg/sighting"
)

// Mode selects the candidate set arbitration runs over.
type Mode uint8

const (
	// ModeAny considers every observer.
	ModeAny Mode = 0

	// ModeConnectable considers only observers whose record is
	// connectable. Callers needing a connection target query this mode
	// even when the overall best record is non-connectable.
	ModeConnectable Mode = 1
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeAny:
		return "ANY"
	case ModeConnectable:
		return "CONNECTABLE"
	default:
		return "UNKNOWN"
	}
}

// DefaultSwitchThreshold is the default hysteresis margin in dB.
// A challenger must beat the active observer by more than this.
const DefaultSwitchThreshold = 16

// Policy holds the arbitration tuning knobs.
type Policy struct {
	// SwitchThreshold is the hysteresis margin in dB.
	SwitchThreshold int
}

// DefaultPolicy returns the default arbitration policy.
func DefaultPolicy() Policy {
	return Policy{SwitchThreshold: DefaultSwitchThreshold}
}

// State is the arbitration result for one device in one mode.
// The zero value means no observer is active.
type State struct {
	// Observer is the active observer id, or "" if none.
	Observer string

	// ChosenAt is when the observer was chosen.
	ChosenAt time.Time

	// RSSI is the signal strength of the active record when last
	// evaluated.
	RSSI int
}

// IsZero reports whether no observer is active.
func (s State) IsZero() bool {
	return s.Observer == ""
}

// Candidate is one observer's record plus the observer metadata the
// policy needs.
type Candidate struct {
	// Record is the observer's current non-stale record.
	Record sighting.Record

	// Priority is the observer's tie-break weight.
	Priority int

	// Scanning reports whether the observer is currently scanning.
	// A non-scanning observer cannot defend its active position.
	Scanning bool
}

// Choose computes the new arbitration state for a device given its
// current state and the non-stale candidate records. The second return
// value reports whether the active observer changed (including becoming
// or ceasing to be set).
//
// Policy, in order: a still-present, still-scanning active observer is
// kept unless a challenger exceeds its strength by more than the switch
// threshold; otherwise the strongest candidate wins, ties broken by
// priority, then by observer id.
func Choose(cur State, candidates []Candidate, mode Mode, pol Policy, now time.Time) (State, bool) {
	eligible := candidates
	if mode == ModeConnectable {
		eligible = make([]Candidate, 0, len(candidates))
		for _, c := range candidates {
			if c.Record.Connectable {
				eligible = append(eligible, c)
			}
		}
	}

	if len(eligible) == 0 {
		return State{}, !cur.IsZero()
	}

	if !cur.IsZero() {
		if incumbent := find(eligible, cur.Observer); incumbent != nil && incumbent.Scanning {
			challenger := best(eligible, cur.Observer)
			if challenger == nil || challenger.Record.RSSI <= incumbent.Record.RSSI+pol.SwitchThreshold {
				// Keep the incumbent; refresh the strength so the next
				// round's hysteresis compares against current reality.
				return State{
					Observer: cur.Observer,
					ChosenAt: cur.ChosenAt,
					RSSI:     incumbent.Record.RSSI,
				}, false
			}
			return State{
				Observer: challenger.Record.Observer,
				ChosenAt: now,
				RSSI:     challenger.Record.RSSI,
			}, true
		}
	}

	winner := best(eligible, "")
	next := State{
		Observer: winner.Record.Observer,
		ChosenAt: now,
		RSSI:     winner.Record.RSSI,
	}
	return next, next.Observer != cur.Observer
}

// find returns the candidate for an observer id, or nil.
func find(candidates []Candidate, observer string) *Candidate {
	for i := range candidates {
		if candidates[i].Record.Observer == observer {
			return &candidates[i]
		}
	}
	return nil
}

// best returns the strongest candidate, excluding the given observer id.
// Ties break by priority, then by observer id for determinism.
// Returns nil when nothing remains after exclusion.
func best(candidates []Candidate, exclude string) *Candidate {
	var winner *Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Record.Observer == exclude {
			continue
		}
		if winner == nil || better(c, winner) {
			winner = c
		}
	}
	return winner
}

func better(a, b *Candidate) bool {
	if a.Record.RSSI != b.Record.RSSI {
		return a.Record.RSSI > b.Record.RSSI
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Record.Observer < b.Record.Observer
}
