// Package arbiter selects the authoritative observer for a device.
//
// Choose is a pure function over the device's non-stale records: no
// clocks, no locks, no side effects. Hysteresis keeps the currently
// active observer in place until a challenger beats it by more than the
// configured switch threshold, which prevents flapping when two
// observers report near-equal signal strength.
//
// Arbitration runs independently per mode. ModeAny answers "who has the
// best view of this device"; ModeConnectable answers the same question
// restricted to observers that could actually connect, which is what the
// connection slot manager asks.
//
// The dedup filter lives here too because it only ever runs on the
// record the arbiter chose, never on raw per-observer sightings.
package arbiter
