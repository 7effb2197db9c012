package tracelog

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func sampleEvent(category Category, device string) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Category:  category,
		Device:    device,
	}
}

func readAll(t *testing.T, path string) []Event {
	t.Helper()
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer r.Close()

	var events []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, ev)
	}
}

func TestFileLoggerWritesEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.cbor")

	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	l.Log(Event{
		Timestamp: time.Now().UTC(),
		Category:  CategorySighting,
		Device:    "AA:BB:CC:DD:EE:FF",
		Observer:  "hci0",
		Sighting:  &SightingEvent{RSSI: -60, Connectable: true, Accepted: true},
	})
	if err := l.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}

	events := readAll(t, path)
	if len(events) != 1 {
		t.Fatalf("events: got %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Category != CategorySighting || ev.Device != "AA:BB:CC:DD:EE:FF" || ev.Observer != "hci0" {
		t.Errorf("event fields wrong: %+v", ev)
	}
	if ev.Sighting == nil || ev.Sighting.RSSI != -60 || !ev.Sighting.Accepted {
		t.Errorf("sighting payload wrong: %+v", ev.Sighting)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.cbor")

	l1, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	l1.Log(sampleEvent(CategorySighting, "dev-1"))
	l1.Close()

	l2, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to reopen logger: %v", err)
	}
	l2.Log(sampleEvent(CategoryNotify, "dev-1"))
	l2.Close()

	events := readAll(t, path)
	if len(events) != 2 {
		t.Fatalf("events after append: got %d, want 2", len(events))
	}
	if events[1].Category != CategoryNotify {
		t.Errorf("second event category: got %s, want NOTIFY", events[1].Category)
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.cbor")

	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				l.Log(sampleEvent(CategorySighting, "dev-1"))
			}
		}()
	}
	wg.Wait()
	l.Close()

	events := readAll(t, path)
	if len(events) != writers*perWriter {
		t.Errorf("events: got %d, want %d", len(events), writers*perWriter)
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.cbor")

	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("first close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}

	// Logging after close is silently ignored.
	l.Log(sampleEvent(CategorySighting, "dev-1"))
	if events := readAll(t, path); len(events) != 0 {
		t.Errorf("events written after close: %d", len(events))
	}
}
