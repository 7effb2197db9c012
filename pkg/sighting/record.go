package sighting

import (
	"time"
)

// NoRSSI is the sentinel for an unknown signal strength.
// It sorts below every real dBm reading.
const NoRSSI = -127

// Record is a single observation of a device by one observer.
type Record struct {
	// Device is the stable device identifier (address).
	Device string

	// Observer is the identifier of the observer that reported the sighting.
	Observer string

	// RSSI is the signal strength in dBm, or NoRSSI if unknown.
	RSSI int

	// Connectable reports whether the observer could originate a
	// connection to the device at the time of the sighting.
	Connectable bool

	// Fingerprint identifies the advertisement payload content.
	Fingerprint Fingerprint

	// Payload is the raw advertisement payload.
	Payload []byte

	// TTL is the validity window for this record. Zero means the
	// history's fallback stale window applies.
	TTL time.Duration

	// Time is when the sighting was observed.
	Time time.Time
}

// window returns the effective validity window for the record.
func (r *Record) window(fallback time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return fallback
}

// StaleAt returns the instant the record becomes stale.
func (r *Record) StaleAt(fallback time.Duration) time.Time {
	return r.Time.Add(r.window(fallback))
}

// IsStale reports whether the record is stale at the given time.
func (r *Record) IsStale(now time.Time, fallback time.Duration) bool {
	return now.After(r.StaleAt(fallback))
}
