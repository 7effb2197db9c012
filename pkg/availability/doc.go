// Package availability implements the per-device unavailability timeout.
//
// One logical countdown exists per device with live records. Every
// accepted sighting extends the deadline; when it expires with no
// intervening reset, the device is declared unavailable exactly once.
// A fresh sighting is required to re-arm after firing.
//
// The engine keeps a min-heap of deadlines with lazy cancellation: each
// device carries a generation counter, a reset pushes a new heap entry
// under a new generation, and stale entries are discarded when popped.
// A single rescheduled wakeup serves all devices; there is never one OS
// timer per device.
//
// The interval tracker learns how often a device actually advertises by
// watching gaps between consecutive sightings from one observer. The
// learned interval (plus a wobble allowance for relay buffering) makes a
// better timeout than a fixed fallback for devices that advertise slowly.
package availability
