package tracelog

import (
	"time"
)

// Event represents one traced core decision.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"2,keyasint"`

	// Device is the device identifier, when the event concerns one.
	Device string `cbor:"3,keyasint,omitempty"`

	// Observer is the observer identifier, when the event concerns one.
	Observer string `cbor:"4,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Sighting     *SightingEvent     `cbor:"5,keyasint,omitempty"`
	Switch       *SwitchEvent       `cbor:"6,keyasint,omitempty"`
	Notify       *NotifyEvent       `cbor:"7,keyasint,omitempty"`
	Availability *AvailabilityEvent `cbor:"8,keyasint,omitempty"`
	Slot         *SlotEvent         `cbor:"9,keyasint,omitempty"`
	Registry     *RegistryEvent     `cbor:"10,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategorySighting is a raw sighting ingest (accepted or dropped).
	CategorySighting Category = 0

	// CategoryArbitration is an active-observer change.
	CategoryArbitration Category = 1

	// CategoryNotify is a forwarded subscriber notification.
	CategoryNotify Category = 2

	// CategoryAvailability is a timer arm/extend or expiry.
	CategoryAvailability Category = 3

	// CategorySlots is a slot grant, release, or forced release.
	CategorySlots Category = 4

	// CategoryRegistry is an observer registration change.
	CategoryRegistry Category = 5
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySighting:
		return "SIGHTING"
	case CategoryArbitration:
		return "ARBITRATION"
	case CategoryNotify:
		return "NOTIFY"
	case CategoryAvailability:
		return "AVAILABILITY"
	case CategorySlots:
		return "SLOTS"
	case CategoryRegistry:
		return "REGISTRY"
	default:
		return "UNKNOWN"
	}
}

// SightingEvent captures one ingested sighting.
type SightingEvent struct {
	// RSSI is the reported signal strength in dBm.
	RSSI int `cbor:"1,keyasint"`

	// Connectable is the reported connectability.
	Connectable bool `cbor:"2,keyasint,omitempty"`

	// Accepted is false when the sighting was dropped as out-of-order
	// or prefiltered.
	Accepted bool `cbor:"3,keyasint"`

	// Fingerprint is the payload fingerprint in hex.
	Fingerprint string `cbor:"4,keyasint,omitempty"`
}

// SwitchEvent captures an active-observer change.
type SwitchEvent struct {
	// From is the previously active observer ("" when none).
	From string `cbor:"1,keyasint,omitempty"`

	// To is the newly active observer ("" when the device lost its
	// last candidate).
	To string `cbor:"2,keyasint,omitempty"`

	// FromRSSI is the previous observer's strength at choice time.
	FromRSSI int `cbor:"3,keyasint,omitempty"`

	// ToRSSI is the new observer's strength.
	ToRSSI int `cbor:"4,keyasint,omitempty"`

	// Mode is the arbitration mode the switch happened in.
	Mode string `cbor:"5,keyasint,omitempty"`
}

// NotifyEvent captures a notification forwarded to subscribers.
type NotifyEvent struct {
	// RSSI is the notified record's strength.
	RSSI int `cbor:"1,keyasint"`

	// Connectable is the notified record's connectable-path flag.
	Connectable bool `cbor:"2,keyasint,omitempty"`
}

// AvailabilityEvent captures timer activity for a device.
type AvailabilityEvent struct {
	// Timeout is the timeout in force when arming/extending.
	Timeout time.Duration `cbor:"1,keyasint,omitempty"`

	// Fired is true when the device was declared unavailable.
	Fired bool `cbor:"2,keyasint,omitempty"`
}

// SlotOp identifies a slot ledger operation.
type SlotOp uint8

const (
	// SlotGranted is a successful slot grant.
	SlotGranted SlotOp = 0

	// SlotReleased is a voluntary release.
	SlotReleased SlotOp = 1

	// SlotForcedRelease is an invalidation caused by observer
	// deregistration.
	SlotForcedRelease SlotOp = 2

	// SlotDenied is a failed request.
	SlotDenied SlotOp = 3
)

// String returns the operation name.
func (o SlotOp) String() string {
	switch o {
	case SlotGranted:
		return "GRANTED"
	case SlotReleased:
		return "RELEASED"
	case SlotForcedRelease:
		return "FORCED_RELEASE"
	case SlotDenied:
		return "DENIED"
	default:
		return "UNKNOWN"
	}
}

// SlotEvent captures slot ledger activity.
type SlotEvent struct {
	// Op is what happened.
	Op SlotOp `cbor:"1,keyasint"`

	// Token is the allocation token id, when one exists.
	Token string `cbor:"2,keyasint,omitempty"`

	// Free is the observer's remaining capacity after the operation.
	Free int `cbor:"3,keyasint,omitempty"`

	// Reason carries the failure condition for SlotDenied.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// RegistryEvent captures an observer registration change.
type RegistryEvent struct {
	// Op is the registration event name (ADDED, REMOVED, UPDATED).
	Op string `cbor:"1,keyasint"`

	// Kind is the observer kind name.
	Kind string `cbor:"2,keyasint,omitempty"`
}
