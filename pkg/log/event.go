package log

import (
	"time"
)

// Event represents a single captured device event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// EpochID identifies the connection epoch (UUID) the event belongs to.
	// A new epoch starts on every link-start. Empty before the first one.
	EpochID string `cbor:"2,keyasint,omitempty"`

	// Component that emitted the event.
	Component Component `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	StateChange   *StateChangeEvent   `cbor:"10,keyasint,omitempty"`
	Exchange      *ExchangeEvent      `cbor:"11,keyasint,omitempty"`
	Actuation     *ActuationEvent     `cbor:"12,keyasint,omitempty"`
	Advertisement *AdvertisementEvent `cbor:"13,keyasint,omitempty"`
	Error         *ErrorEventData     `cbor:"14,keyasint,omitempty"`
}

// Component identifies the part of the device that emitted an event.
type Component uint8

const (
	// ComponentSupervisor is the boot sequence and idle loop.
	ComponentSupervisor Component = 0
	// ComponentConnectivity is the WiFi association state machine.
	ComponentConnectivity Component = 1
	// ComponentDiscovery is the name advertiser.
	ComponentDiscovery Component = 2
	// ComponentDispatch is the HTTP request dispatcher.
	ComponentDispatch Component = 3
	// ComponentActuator is the PWM actuator driver.
	ComponentActuator Component = 4
	// ComponentSettings is the persistent settings store.
	ComponentSettings Component = 5
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentSupervisor:
		return "SUPERVISOR"
	case ComponentConnectivity:
		return "CONNECTIVITY"
	case ComponentDiscovery:
		return "DISCOVERY"
	case ComponentDispatch:
		return "DISPATCH"
	case ComponentActuator:
		return "ACTUATOR"
	case ComponentSettings:
		return "SETTINGS"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a state change.
	CategoryState Category = 0
	// CategoryExchange indicates an HTTP request/response cycle.
	CategoryExchange Category = 1
	// CategoryActuation indicates a pulse width update.
	CategoryActuation Category = 2
	// CategoryAdvertisement indicates a name publication.
	CategoryAdvertisement Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryExchange:
		return "EXCHANGE"
	case CategoryActuation:
		return "ACTUATION"
	case CategoryAdvertisement:
		return "ADVERTISEMENT"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures a state machine transition.
type StateChangeEvent struct {
	// OldState is the state before the transition.
	OldState string `cbor:"1,keyasint"`

	// NewState is the state after the transition.
	NewState string `cbor:"2,keyasint"`

	// Trigger is the event that caused the transition.
	Trigger string `cbor:"3,keyasint,omitempty"`

	// Reason is optional context (e.g. an association failure reason).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// ExchangeEvent captures one HTTP request/response cycle.
type ExchangeEvent struct {
	// ExchangeID uniquely identifies the exchange (UUID).
	ExchangeID string `cbor:"1,keyasint"`

	// Method is the HTTP request method.
	Method string `cbor:"2,keyasint"`

	// Path is the request path.
	Path string `cbor:"3,keyasint"`

	// Status is the HTTP response status code.
	Status int `cbor:"4,keyasint"`

	// BodySize is the response body length in bytes.
	BodySize int `cbor:"5,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Duration is how long the handler took.
	Duration time.Duration `cbor:"7,keyasint,omitempty"`
}

// ActuationEvent captures a pulse width update.
type ActuationEvent struct {
	// Requested is the pulse width the caller asked for, in microseconds.
	Requested uint32 `cbor:"1,keyasint"`

	// Applied is the pulse width latched into the comparator.
	Applied uint32 `cbor:"2,keyasint"`

	// Clamped is true when Requested was outside the safe range.
	Clamped bool `cbor:"3,keyasint,omitempty"`
}

// AdvertisementEvent captures a hostname/service publication.
type AdvertisementEvent struct {
	Hostname     string   `cbor:"1,keyasint"`
	ServiceLabel string   `cbor:"2,keyasint"`
	Port         int      `cbor:"3,keyasint"`
	Addrs        []string `cbor:"4,keyasint,omitempty"`

	// Republish is true when an earlier record was replaced.
	Republish bool `cbor:"5,keyasint,omitempty"`
}

// ErrorEventData captures an error at any component.
type ErrorEventData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context describes what was being attempted.
	Context string `cbor:"2,keyasint,omitempty"`

	// Fatal is true for bootstrap errors that halt the device.
	Fatal bool `cbor:"3,keyasint,omitempty"`
}
