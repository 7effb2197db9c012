package sighting

import (
	"testing"
	"time"
)

func testRecord(device, observer string, rssi int, ts time.Time) Record {
	return Record{
		Device:   device,
		Observer: observer,
		RSSI:     rssi,
		Time:     ts,
	}
}

func TestHistoryIngestAndGet(t *testing.T) {
	h := NewHistory(DefaultConfig())
	now := time.Now()

	if !h.Ingest(testRecord("dev-1", "obs-a", -60, now)) {
		t.Fatal("first ingest rejected")
	}

	rec, ok := h.Get("dev-1", "obs-a")
	if !ok {
		t.Fatal("record not found")
	}
	if rec.RSSI != -60 {
		t.Errorf("RSSI: got %d, want -60", rec.RSSI)
	}
}

func TestHistoryRejectsOutOfOrder(t *testing.T) {
	h := NewHistory(DefaultConfig())
	now := time.Now()

	if !h.Ingest(testRecord("dev-1", "obs-a", -60, now)) {
		t.Fatal("first ingest rejected")
	}
	if h.Ingest(testRecord("dev-1", "obs-a", -40, now.Add(-time.Second))) {
		t.Error("out-of-order ingest accepted")
	}

	// The older record must not have replaced the newer one.
	rec, _ := h.Get("dev-1", "obs-a")
	if rec.RSSI != -60 {
		t.Errorf("RSSI after rejected ingest: got %d, want -60", rec.RSSI)
	}
}

func TestHistoryAcceptsEqualTimestamp(t *testing.T) {
	h := NewHistory(DefaultConfig())
	now := time.Now()

	h.Ingest(testRecord("dev-1", "obs-a", -60, now))
	if !h.Ingest(testRecord("dev-1", "obs-a", -55, now)) {
		t.Error("equal-timestamp ingest rejected")
	}

	rec, _ := h.Get("dev-1", "obs-a")
	if rec.RSSI != -55 {
		t.Errorf("RSSI: got %d, want -55", rec.RSSI)
	}
}

func TestHistoryPairsAreIndependent(t *testing.T) {
	h := NewHistory(DefaultConfig())
	now := time.Now()

	h.Ingest(testRecord("dev-1", "obs-a", -60, now))
	// An older timestamp from a different observer is fine.
	if !h.Ingest(testRecord("dev-1", "obs-b", -70, now.Add(-time.Minute))) {
		t.Error("ingest from second observer rejected")
	}

	records := h.RecordsFor("dev-1", now)
	if len(records) != 2 {
		t.Fatalf("records: got %d, want 2", len(records))
	}
}

func TestHistoryRecordsForSkipsStale(t *testing.T) {
	h := NewHistory(Config{FallbackStaleWindow: 10 * time.Second})
	now := time.Now()

	h.Ingest(testRecord("dev-1", "obs-a", -60, now.Add(-time.Minute)))
	h.Ingest(testRecord("dev-1", "obs-b", -70, now))

	records := h.RecordsFor("dev-1", now)
	if len(records) != 1 {
		t.Fatalf("records: got %d, want 1", len(records))
	}
	if records[0].Observer != "obs-b" {
		t.Errorf("observer: got %q, want obs-b", records[0].Observer)
	}
}

func TestHistoryRecordTTLOverridesFallback(t *testing.T) {
	h := NewHistory(Config{FallbackStaleWindow: 10 * time.Second})
	now := time.Now()

	rec := testRecord("dev-1", "obs-a", -60, now.Add(-time.Minute))
	rec.TTL = 2 * time.Minute
	h.Ingest(rec)

	if got := h.RecordsFor("dev-1", now); len(got) != 1 {
		t.Errorf("record with long TTL treated as stale")
	}
}

func TestHistoryMaxTTL(t *testing.T) {
	h := NewHistory(Config{FallbackStaleWindow: 30 * time.Second})
	now := time.Now()

	recA := testRecord("dev-1", "obs-a", -60, now)
	recA.TTL = 90 * time.Second
	h.Ingest(recA)
	h.Ingest(testRecord("dev-1", "obs-b", -70, now)) // fallback window

	ttl, ok := h.MaxTTL("dev-1", now)
	if !ok {
		t.Fatal("MaxTTL found nothing")
	}
	if ttl != 90*time.Second {
		t.Errorf("MaxTTL: got %s, want 90s", ttl)
	}

	if _, ok := h.MaxTTL("dev-unknown", now); ok {
		t.Error("MaxTTL for unknown device reported a value")
	}
}

func TestHistoryPruneStale(t *testing.T) {
	h := NewHistory(Config{FallbackStaleWindow: 10 * time.Second})
	now := time.Now()

	h.Ingest(testRecord("dev-1", "obs-a", -60, now.Add(-time.Minute)))
	h.Ingest(testRecord("dev-2", "obs-a", -60, now.Add(-time.Minute)))
	h.Ingest(testRecord("dev-2", "obs-b", -70, now))

	emptied := h.PruneStale(now)
	if len(emptied) != 1 || emptied[0] != "dev-1" {
		t.Errorf("emptied: got %v, want [dev-1]", emptied)
	}
	if h.DeviceCount() != 1 {
		t.Errorf("device count after prune: got %d, want 1", h.DeviceCount())
	}
}

func TestHistoryDropObserver(t *testing.T) {
	h := NewHistory(DefaultConfig())
	now := time.Now()

	h.Ingest(testRecord("dev-1", "obs-a", -60, now))
	h.Ingest(testRecord("dev-2", "obs-a", -60, now))
	h.Ingest(testRecord("dev-2", "obs-b", -70, now))

	affected, emptied := h.DropObserver("obs-a")
	if len(affected) != 2 {
		t.Errorf("affected: got %v, want 2 devices", affected)
	}
	if len(emptied) != 1 || emptied[0] != "dev-1" {
		t.Errorf("emptied: got %v, want [dev-1]", emptied)
	}

	if _, ok := h.Get("dev-2", "obs-b"); !ok {
		t.Error("unrelated record lost")
	}
}

func TestHistoryDevicesFor(t *testing.T) {
	h := NewHistory(DefaultConfig())
	now := time.Now()

	h.Ingest(testRecord("dev-b", "obs-a", -60, now))
	h.Ingest(testRecord("dev-a", "obs-a", -60, now))
	h.Ingest(testRecord("dev-c", "obs-b", -70, now))

	devices := h.DevicesFor("obs-a")
	if len(devices) != 2 || devices[0] != "dev-a" || devices[1] != "dev-b" {
		t.Errorf("devices: got %v, want [dev-a dev-b]", devices)
	}
	if got := h.DevicesFor("obs-unknown"); len(got) != 0 {
		t.Errorf("devices for unknown observer: got %v, want none", got)
	}
}

func TestHistoryDropPair(t *testing.T) {
	h := NewHistory(DefaultConfig())
	now := time.Now()

	h.Ingest(testRecord("dev-1", "obs-a", -60, now))
	h.Ingest(testRecord("dev-1", "obs-b", -70, now))

	removed, emptied := h.DropPair("dev-1", "obs-a")
	if !removed || emptied {
		t.Errorf("first drop: got removed=%v emptied=%v, want true false", removed, emptied)
	}
	if removed, _ := h.DropPair("dev-1", "obs-a"); removed {
		t.Error("second drop of the same pair reported a removal")
	}

	removed, emptied = h.DropPair("dev-1", "obs-b")
	if !removed || !emptied {
		t.Errorf("last drop: got removed=%v emptied=%v, want true true", removed, emptied)
	}
	if h.DeviceCount() != 0 {
		t.Error("device survived dropping its last record")
	}

	if removed, emptied := h.DropPair("dev-unknown", "obs-a"); removed || emptied {
		t.Error("drop on unknown device reported a removal")
	}
}

func TestHistoryDropDevice(t *testing.T) {
	h := NewHistory(DefaultConfig())
	now := time.Now()

	h.Ingest(testRecord("dev-1", "obs-a", -60, now))
	h.DropDevice("dev-1")

	if h.DeviceCount() != 0 {
		t.Error("device survived DropDevice")
	}
}

func TestHistoryDevicesSorted(t *testing.T) {
	h := NewHistory(DefaultConfig())
	now := time.Now()

	h.Ingest(testRecord("dev-b", "obs-a", -60, now))
	h.Ingest(testRecord("dev-a", "obs-a", -60, now))

	devices := h.Devices()
	if len(devices) != 2 || devices[0] != "dev-a" || devices[1] != "dev-b" {
		t.Errorf("devices: got %v, want [dev-a dev-b]", devices)
	}
}
