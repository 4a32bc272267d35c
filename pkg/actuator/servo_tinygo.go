//go:build tinygo

package actuator

import (
	"fmt"
	"machine"
	"sync"

	"tinygo.org/x/drivers/servo"
)

// servoPeriod is the frame period hard-wired into the TinyGo servo driver.
const servoPeriod uint32 = 20000

// ServoGenerator drives a servo on a TinyGo target. The PWM compare
// registers on the supported targets (RP2040 CC, SAMD CCBUF) are buffered
// and reload at counter wrap.
type ServoGenerator struct {
	// PWM is the peripheral the servo pin belongs to, e.g. machine.PWM1.
	PWM servo.PWM

	mu      sync.Mutex
	servo   servo.Servo
	claimed bool
}

// Claim implements Generator.
func (g *ServoGenerator) Claim(pin int, period, initial uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.claimed {
		return ErrPeripheralBusy
	}
	if period != servoPeriod {
		return fmt.Errorf("%w: %d us (servo driver requires %d)", ErrInvalidPeriod, period, servoPeriod)
	}

	s, err := servo.New(g.PWM, machine.Pin(pin))
	if err != nil {
		return fmt.Errorf("%w: GPIO%d: %v", ErrInvalidPin, pin, err)
	}
	s.SetMicroseconds(int16(initial))

	g.servo = s
	g.claimed = true
	return nil
}

// Latch implements Generator.
func (g *ServoGenerator) Latch(compare uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.claimed {
		return ErrNotClaimed
	}
	g.servo.SetMicroseconds(int16(compare))
	return nil
}

// Release implements Generator. The TinyGo servo driver has no disable, so
// the output is parked at zero width.
func (g *ServoGenerator) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.claimed {
		return ErrNotClaimed
	}
	g.servo.SetMicroseconds(0)
	g.claimed = false
	return nil
}

// Compile-time interface satisfaction check.
var _ Generator = (*ServoGenerator)(nil)
