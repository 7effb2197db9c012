// Package sighting implements the per-device sighting history.
//
// Every observer contributes at most one record per device: the most recent
// sighting it reported. The history enforces monotonic timestamps per
// (device, observer) pair, drops out-of-order deliveries silently (relayed
// observers may reorder), and excludes stale records from all queries.
//
// # Staleness
//
// A record is stale once its age exceeds its validity window: the TTL hint
// the observer attached to the sighting, or the configured fallback window
// when no hint was given. Stale records never reach arbitration; they are
// removed by PruneStale sweeps or when the owning observer deregisters.
//
// # Fingerprints
//
// Advertisement payloads are identified by a BLAKE2b fingerprint so that
// unchanged payloads can be recognized without retaining or comparing the
// raw bytes on every query.
package sighting
