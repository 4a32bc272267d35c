package connectivity

// State represents the station's association state.
type State uint8

const (
	// StateDisconnected indicates no association and no attempt in flight.
	StateDisconnected State = iota

	// StateAssociating indicates an association attempt is in progress.
	StateAssociating

	// StateAssociated indicates the link is up but no address is assigned.
	StateAssociated

	// StateAddressAcquired indicates the station has a usable address.
	StateAddressAcquired
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateAssociating:
		return "ASSOCIATING"
	case StateAssociated:
		return "ASSOCIATED"
	case StateAddressAcquired:
		return "ADDRESS_ACQUIRED"
	default:
		return "UNKNOWN"
	}
}

// action is the side effect of a transition.
type action uint8

const (
	actionNone action = iota
	actionAssociate
	actionPublish
	actionRetry
)

type transitionKey struct {
	from  State
	event EventType
}

type transition struct {
	to     State
	action action
}

// transitions is the complete state table. Any (state, event) pair not
// listed leaves the state unchanged.
var transitions = map[transitionKey]transition{
	{StateDisconnected, EventLinkStart}: {StateAssociating, actionAssociate},
	{StateAssociating, EventLinkStart}:  {StateAssociating, actionAssociate},

	{StateAssociating, EventAssociated}: {StateAssociated, actionNone},

	{StateAssociating, EventAssociationFailed}: {StateDisconnected, actionRetry},
	{StateAssociated, EventAssociationFailed}:  {StateDisconnected, actionRetry},

	{StateAssociated, EventAddressAcquired}: {StateAddressAcquired, actionPublish},

	{StateAssociated, EventDisconnected}:      {StateDisconnected, actionRetry},
	{StateAddressAcquired, EventDisconnected}: {StateDisconnected, actionRetry},
}

func lookup(from State, ev EventType) (transition, bool) {
	t, ok := transitions[transitionKey{from, ev}]
	return t, ok
}
