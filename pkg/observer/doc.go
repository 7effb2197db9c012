// Package observer implements the registry of sighting observers.
//
// An observer is anything that reports device sightings: a local radio
// adapter or a remote relay proxy. The registry tracks each observer's
// declared capabilities (connection capacity, connectability, priority,
// validity window) and its liveness.
//
// # Liveness
//
// Two signals feed an observer's scanning state. A quiet-window watchdog
// marks an observer as not scanning when it has reported nothing for the
// configured timeout; the next detection restores it. Independently, an
// observer with in-flight connection attempts is treated as not scanning,
// since most radios cannot scan while connecting.
//
// Registering an already-registered id replaces its capability record in
// place, which covers adapters coming back online with different capacity.
// Deregistering an unknown id is a no-op.
package observer
