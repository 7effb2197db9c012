package observer

import (
	"time"
)

// Kind distinguishes local adapters from remote relays.
type Kind uint8

const (
	// KindLocalAdapter is a radio adapter on this host.
	KindLocalAdapter Kind = 0

	// KindRemoteRelay is a remote relay proxy forwarding sightings.
	KindRemoteRelay Kind = 1
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLocalAdapter:
		return "LOCAL_ADAPTER"
	case KindRemoteRelay:
		return "REMOTE_RELAY"
	default:
		return "UNKNOWN"
	}
}

// Default priority weights per kind. Local adapters win arbitration ties
// against relays unless the caller configures otherwise.
const (
	DefaultLocalPriority = 100
	DefaultRelayPriority = 50
)

// Capabilities describes what an observer can do.
type Capabilities struct {
	// Connectable reports whether the observer can originate
	// connections at all.
	Connectable bool

	// MaxConnections is the number of simultaneous connections the
	// observer can sustain. Zero means it holds no connection slots.
	MaxConnections int

	// Priority is the arbitration tie-break weight; higher wins.
	// Zero selects the default for the observer's kind.
	Priority int

	// StaleWindow is the validity window the observer declares for its
	// sightings. Zero means sightings carry their own TTL hints or the
	// manager fallback applies.
	StaleWindow time.Duration
}

// Observer is a point-in-time snapshot of a registry entry.
type Observer struct {
	// ID is the stable observer identifier.
	ID string

	// Kind is the observer kind.
	Kind Kind

	// Capabilities are the declared capabilities.
	Capabilities Capabilities

	// Scanning reports whether the observer is currently believed to be
	// scanning. False while the watchdog has it quiet or while it has
	// in-flight connection attempts.
	Scanning bool

	// Connecting is the number of in-flight connection attempts.
	Connecting int

	// LastDetection is when the observer last reported a sighting.
	LastDetection time.Time

	// RegisteredAt is when the observer (re-)registered.
	RegisteredAt time.Time
}
