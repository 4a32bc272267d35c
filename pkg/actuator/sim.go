package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SimMaxPin is the highest GPIO number SimGenerator accepts (ESP32 range).
const SimMaxPin = 39

// simHistoryLen bounds the number of emitted pulses SimGenerator remembers.
const simHistoryLen = 64

// SimGenerator is a software model of a double-buffered PWM comparator.
// Latch writes the shadow register; Boundary copies it into the active
// register, exactly as the hardware does at the end of each period.
// It is safe for concurrent use.
type SimGenerator struct {
	mu sync.Mutex

	claimed bool
	pin     int
	period  uint32

	shadow  uint32
	active  uint32
	pending bool

	boundaries uint64
	history    []uint32
}

// NewSimGenerator creates an unclaimed simulated peripheral.
func NewSimGenerator() *SimGenerator {
	return &SimGenerator{}
}

// Claim implements Generator.
func (g *SimGenerator) Claim(pin int, period, initial uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.claimed {
		return ErrPeripheralBusy
	}
	if pin < 0 || pin > SimMaxPin {
		return fmt.Errorf("%w: GPIO%d", ErrInvalidPin, pin)
	}
	if period == 0 {
		return ErrInvalidPeriod
	}

	g.claimed = true
	g.pin = pin
	g.period = period
	g.shadow = initial
	g.active = initial
	g.pending = false
	g.boundaries = 0
	g.history = nil
	return nil
}

// Latch implements Generator.
func (g *SimGenerator) Latch(compare uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.claimed {
		return ErrNotClaimed
	}
	g.shadow = compare
	g.pending = true
	return nil
}

// Release implements Generator.
func (g *SimGenerator) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.claimed {
		return ErrNotClaimed
	}
	g.claimed = false
	return nil
}

// Boundary advances the waveform by one period: a pending shadow value
// becomes active and the emitted pulse is recorded. It returns the width of
// the pulse emitted in the new period, or false if the peripheral is not
// claimed.
func (g *SimGenerator) Boundary() (uint32, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.claimed {
		return 0, false
	}
	if g.pending {
		g.active = g.shadow
		g.pending = false
	}
	g.boundaries++
	g.history = append(g.history, g.active)
	if len(g.history) > simHistoryLen {
		g.history = g.history[len(g.history)-simHistoryLen:]
	}
	return g.active, true
}

// Run calls Boundary once per period until ctx is done. It returns
// ErrNotClaimed if the peripheral has not been claimed.
func (g *SimGenerator) Run(ctx context.Context) error {
	g.mu.Lock()
	claimed, period := g.claimed, g.period
	g.mu.Unlock()

	if !claimed {
		return ErrNotClaimed
	}

	ticker := time.NewTicker(time.Duration(period) * time.Microsecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, ok := g.Boundary(); !ok {
				return nil
			}
		}
	}
}

// Active returns the width currently being emitted.
func (g *SimGenerator) Active() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Shadow returns the staged width and whether it is still pending.
func (g *SimGenerator) Shadow() (uint32, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shadow, g.pending
}

// History returns the most recent emitted pulse widths, oldest first.
func (g *SimGenerator) History() []uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]uint32, len(g.history))
	copy(out, g.history)
	return out
}

// Boundaries returns the number of periods elapsed since Claim.
func (g *SimGenerator) Boundaries() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.boundaries
}

// Claimed reports whether the peripheral is in use.
func (g *SimGenerator) Claimed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claimed
}

// Compile-time interface satisfaction check.
var _ Generator = (*SimGenerator)(nil)
