package relay

import (
	"errors"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceTypeRelay is the service type relay proxies announce.
	ServiceTypeRelay = "_blemux._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default relay port.
	DefaultPort = 5815
)

// TXT record key constants.
const (
	TXTKeyObserverID  = "ID"  // Observer id (required)
	TXTKeySlots       = "SL"  // Connection slot capacity
	TXTKeyConnectable = "CN"  // "1" when the relay can originate connections
	TXTKeyPriority    = "PR"  // Arbitration tie-break priority
	TXTKeyStaleWindow = "TTL" // Sighting validity window in seconds
	TXTKeyName        = "DN"  // Optional user-configurable name
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Relay discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotAnnouncing       = errors.New("relay is not being announced")
)

// RelayInfo contains the information a relay announces about itself.
type RelayInfo struct {
	// ObserverID is the stable observer identifier.
	ObserverID string

	// Name is an optional user-configurable name.
	Name string

	// Slots is the relay's connection slot capacity.
	Slots int

	// Connectable reports whether the relay can originate connections.
	Connectable bool

	// Priority is the arbitration tie-break weight. Zero selects the
	// default relay priority.
	Priority int

	// StaleWindow is the validity window the relay declares for its
	// sightings. Zero means none declared.
	StaleWindow time.Duration

	// Port is the service port. Zero selects DefaultPort.
	Port uint16

	// Host is the hostname to advertise.
	Host string
}

// RelayService represents a relay found via mDNS.
type RelayService struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the hostname.
	Host string

	// Port is the service port.
	Port uint16

	// Addresses contains resolved IP addresses.
	Addresses []string

	// Info is the decoded TXT payload.
	Info RelayInfo
}

// RelayEvent reports a relay appearing or disappearing.
type RelayEvent struct {
	// Service is the relay concerned.
	Service *RelayService

	// Gone is true when the relay's last address disappeared.
	Gone bool
}
