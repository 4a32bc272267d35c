//go:build linux && !tinygo

package actuator

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// PeriphGenerator drives a hardware PWM pin through periph.io. On the
// Raspberry Pi the PWM block loads a new data value at the end of the
// running cycle, which gives the period-boundary latch semantics.
type PeriphGenerator struct {
	mu sync.Mutex

	pin    gpio.PinIO
	period uint32
	freq   physic.Frequency

	// lookup resolves a pin name; gpioreg.ByName unless overridden in tests.
	lookup   func(name string) gpio.PinIO
	initHost func() error
}

// NewPeriphGenerator creates a generator that resolves pins through the
// periph GPIO registry.
func NewPeriphGenerator() *PeriphGenerator {
	return &PeriphGenerator{
		lookup:   gpioreg.ByName,
		initHost: initPeriphHost,
	}
}

func initPeriphHost() error {
	_, err := host.Init()
	return err
}

// Claim implements Generator. host.Init is safe to call repeatedly.
func (g *PeriphGenerator) Claim(pin int, period, initial uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pin != nil {
		return ErrPeripheralBusy
	}
	if period == 0 {
		return ErrInvalidPeriod
	}
	if err := g.initHost(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}

	p := g.lookup(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return fmt.Errorf("%w: GPIO%d", ErrInvalidPin, pin)
	}

	freq := periodToFrequency(period)
	if err := p.PWM(dutyFor(initial, period), freq); err != nil {
		return fmt.Errorf("%w: GPIO%d: %w", ErrInvalidPin, pin, err)
	}

	g.pin = p
	g.period = period
	g.freq = freq
	return nil
}

// Latch implements Generator.
func (g *PeriphGenerator) Latch(compare uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pin == nil {
		return ErrNotClaimed
	}
	return g.pin.PWM(dutyFor(compare, g.period), g.freq)
}

// Release implements Generator. The pin is left driven low so the servo
// sees no further pulses.
func (g *PeriphGenerator) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pin == nil {
		return ErrNotClaimed
	}
	p := g.pin
	g.pin = nil
	if err := p.Halt(); err != nil {
		return err
	}
	return p.Out(gpio.Low)
}

// periodToFrequency converts a period in microseconds to a PWM frequency.
func periodToFrequency(periodUS uint32) physic.Frequency {
	return physic.Frequency(int64(physic.Hertz) * 1_000_000 / int64(periodUS))
}

// dutyFor converts a pulse width into a periph duty cycle.
func dutyFor(pulseUS, periodUS uint32) gpio.Duty {
	return gpio.Duty(uint64(gpio.DutyMax) * uint64(pulseUS) / uint64(periodUS))
}

// Compile-time interface satisfaction check.
var _ Generator = (*PeriphGenerator)(nil)
