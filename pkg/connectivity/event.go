package connectivity

import "net/netip"

// EventType identifies a notification from the radio stack.
type EventType uint8

const (
	// EventLinkStart requests an association attempt.
	EventLinkStart EventType = iota

	// EventAssociated reports that the station joined the access point.
	EventAssociated

	// EventAssociationFailed reports that an attempt did not succeed.
	EventAssociationFailed

	// EventAddressAcquired reports a usable address. Event.Addr is set.
	EventAddressAcquired

	// EventDisconnected reports loss of an established link.
	EventDisconnected
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventLinkStart:
		return "LINK_START"
	case EventAssociated:
		return "ASSOCIATED"
	case EventAssociationFailed:
		return "ASSOCIATION_FAILED"
	case EventAddressAcquired:
		return "ADDRESS_ACQUIRED"
	case EventDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// ReasonRetry marks a LinkStart posted by the Manager's own retry timer.
// Any other LinkStart starts a fresh retry budget.
const ReasonRetry = "retry"

// Event is a single notification delivered to the Manager.
type Event struct {
	Type EventType

	// Addr is the acquired address (EventAddressAcquired only).
	Addr netip.Addr

	// Reason is free-form diagnostic text, e.g. "auth expired" or ReasonRetry.
	Reason string
}
