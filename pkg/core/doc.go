// Package core wires the blemux components into a single presence
// arbitration manager.
//
// The Manager consumes a uniform event stream (sightings, observer
// online, observer offline) through Apply and runs the full ingest
// pipeline per device: history upsert, re-arbitration in both the any
// and connectable views, dedup gating, availability timer reset, and
// subscriber notification. The pipeline is atomic per device; events
// for different devices proceed in parallel on striped locks.
//
// # Basic Usage
//
//	mgr := core.NewManager(core.DefaultConfig())
//	mgr.Start()
//	defer mgr.Stop()
//
//	mgr.Apply(core.Event{Type: core.EventObserverOnline, Online: &core.OnlineEvent{
//	    Observer: "hci0",
//	    Kind:     observer.KindLocalAdapter,
//	    Capabilities: observer.Capabilities{Connectable: true, MaxConnections: 2},
//	}})
//
//	mgr.Apply(core.Event{Type: core.EventSighting, Sighting: &core.SightingEvent{
//	    Device:   "AA:BB:CC:DD:EE:FF",
//	    Observer: "hci0",
//	    RSSI:     -60,
//	    Time:     time.Now(),
//	}})
//
// Subscribers receive arbitrated updates and unavailability events via
// Subscribe. Connection attempts reserve capacity through RequestSlot
// and return it through ReleaseSlot.
//
// # Configuration
//
// Config carries every policy knob (hysteresis margin, dedup deltas,
// stale windows, watchdog timings) with defaults from DefaultConfig.
// LoadConfig reads the same structure from a YAML file for callers that
// keep tuning in files; the core itself holds no global state.
package core
