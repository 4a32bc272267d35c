package actuator

// Generator is one timer, comparator and generator triple driving a pin.
// Implementations are not required to be safe for concurrent use; Driver
// serializes every call.
type Generator interface {
	// Claim reserves the peripheral for pin and starts a waveform with the
	// given period whose first pulse is initial wide. It returns
	// ErrPeripheralBusy if the peripheral is already claimed and
	// ErrInvalidPin if pin cannot carry PWM.
	Claim(pin int, period, initial uint32) error

	// Latch stages compare as the pulse width for the next period. The live
	// comparator is updated at the period boundary, never mid-pulse. A later
	// Latch before the boundary replaces the staged value.
	Latch(compare uint32) error

	// Release stops the waveform and frees the peripheral.
	Release() error
}
