package core

import (
	"time"

	"github.com/blemux/blemux-go/pkg/observer"
)

// EventType identifies the variant carried by an Event.
type EventType uint8

const (
	// EventSighting is a device observation from an observer.
	EventSighting EventType = 0

	// EventObserverOnline is an observer registration or capability
	// update.
	EventObserverOnline EventType = 1

	// EventObserverOffline is an observer deregistration.
	EventObserverOffline EventType = 2
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventSighting:
		return "SIGHTING"
	case EventObserverOnline:
		return "OBSERVER_ONLINE"
	case EventObserverOffline:
		return "OBSERVER_OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// Event is the single ingestion unit consumed by Manager.Apply.
// Exactly one payload pointer matching Type must be set.
type Event struct {
	Type EventType

	Sighting *SightingEvent
	Online   *OnlineEvent
	Offline  *OfflineEvent
}

// SightingEvent reports one observation of a device.
type SightingEvent struct {
	// Device is the stable device identifier (address).
	Device string

	// Observer is the reporting observer's id. It must be registered.
	Observer string

	// RSSI is the signal strength in dBm, or sighting.NoRSSI if unknown.
	RSSI int

	// Connectable reports whether the observer could originate a
	// connection to the device at observation time.
	Connectable bool

	// Payload is the raw advertisement payload, if any.
	Payload []byte

	// TTL is the observer-declared validity window for this sighting.
	// Zero lets the manager derive one from the observer's stale window,
	// the device's learned advertising interval, or the fallback window,
	// in that order.
	TTL time.Duration

	// Time is when the sighting was observed. Zero means now.
	Time time.Time
}

// OnlineEvent announces an observer coming online. Re-announcing an
// already-online observer replaces its capabilities.
type OnlineEvent struct {
	Observer     string
	Kind         observer.Kind
	Capabilities observer.Capabilities
}

// OfflineEvent announces an observer going offline.
type OfflineEvent struct {
	Observer string
}
