package arbiter

import (
	"testing"
	"time"

	"github.com/blemux/blemux-go/pkg/sighting"
)

func rec(observer string, rssi int, ts time.Time) sighting.Record {
	return sighting.Record{
		Device:   "dev-1",
		Observer: observer,
		RSSI:     rssi,
		Time:     ts,
	}
}

func TestFilterFirstSightingNotifies(t *testing.T) {
	f := NewFilter(DefaultFilterConfig())
	if !f.ShouldNotify(nil, rec("obs-a", -60, time.Now())) {
		t.Error("first sighting suppressed")
	}
}

func TestFilterSuppressesUnchanged(t *testing.T) {
	f := NewFilter(DefaultFilterConfig())
	now := time.Now()

	last := rec("obs-a", -60, now)
	next := rec("obs-a", -62, now.Add(time.Second))
	if f.ShouldNotify(&last, next) {
		t.Error("notified for a 2 dB move under the delta")
	}
}

func TestFilterStrengthDelta(t *testing.T) {
	f := NewFilter(FilterConfig{StrengthDelta: 4, TimeFloor: time.Hour})
	now := time.Now()
	last := rec("obs-a", -60, now)

	// Exactly the delta: suppressed.
	if f.ShouldNotify(&last, rec("obs-a", -64, now.Add(time.Second))) {
		t.Error("notified at exactly the strength delta")
	}
	// Beyond the delta, either direction.
	if !f.ShouldNotify(&last, rec("obs-a", -65, now.Add(time.Second))) {
		t.Error("suppressed a weakening move beyond the delta")
	}
	if !f.ShouldNotify(&last, rec("obs-a", -55, now.Add(time.Second))) {
		t.Error("suppressed a strengthening move beyond the delta")
	}
}

func TestFilterObserverChangeNotifies(t *testing.T) {
	f := NewFilter(DefaultFilterConfig())
	now := time.Now()

	last := rec("obs-a", -60, now)
	if !f.ShouldNotify(&last, rec("obs-b", -60, now.Add(time.Second))) {
		t.Error("observer change suppressed")
	}
}

func TestFilterPayloadChangeNotifies(t *testing.T) {
	f := NewFilter(DefaultFilterConfig())
	now := time.Now()

	last := rec("obs-a", -60, now)
	last.Fingerprint = sighting.ComputeFingerprint([]byte{1})
	next := rec("obs-a", -60, now.Add(time.Second))
	next.Fingerprint = sighting.ComputeFingerprint([]byte{2})

	if !f.ShouldNotify(&last, next) {
		t.Error("payload change suppressed")
	}
}

func TestFilterConnectableChangeNotifies(t *testing.T) {
	f := NewFilter(DefaultFilterConfig())
	now := time.Now()

	last := rec("obs-a", -60, now)
	next := rec("obs-a", -60, now.Add(time.Second))
	next.Connectable = true

	if !f.ShouldNotify(&last, next) {
		t.Error("connectable change suppressed")
	}
}

func TestFilterTimeFloor(t *testing.T) {
	f := NewFilter(FilterConfig{StrengthDelta: 4, TimeFloor: 10 * time.Second})
	now := time.Now()
	last := rec("obs-a", -60, now)

	if f.ShouldNotify(&last, rec("obs-a", -60, now.Add(9*time.Second))) {
		t.Error("notified before the time floor")
	}
	if !f.ShouldNotify(&last, rec("obs-a", -60, now.Add(10*time.Second))) {
		t.Error("suppressed at the time floor")
	}
}
