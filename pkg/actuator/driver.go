package actuator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// Status is a point-in-time view of the driver.
type Status struct {
	PulseConfig
	Pin        int
	Current    uint32
	Configured bool
}

// Driver owns the PWM peripheral and is the only writer of its compare
// register.
type Driver struct {
	mu sync.Mutex

	gen Generator
	cfg Config

	configured bool
	current    uint32

	logger *slog.Logger
	events log.Logger
}

// NewDriver creates a driver for gen. The peripheral is not touched until
// Configure is called.
func NewDriver(gen Generator, cfg Config) *Driver {
	return &Driver{
		gen:    gen,
		cfg:    cfg,
		logger: cfg.Logger,
		events: log.OrNoop(cfg.EventLogger),
	}
}

// Configure claims the peripheral and homes the servo to the closed
// position. It may only succeed once; failures leave the driver
// unconfigured and are wrapped in ErrConfigure.
func (d *Driver) Configure() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.configured {
		return ErrAlreadyConfigured
	}
	if err := d.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigure, err)
	}

	if err := d.gen.Claim(d.cfg.Pin, d.cfg.Pulse.Period, d.cfg.ClosedPulse); err != nil {
		return fmt.Errorf("%w: pin %d: %w", ErrConfigure, d.cfg.Pin, err)
	}

	d.configured = true
	d.current = d.cfg.ClosedPulse

	d.debugLog("actuator configured",
		"pin", d.cfg.Pin,
		"period_us", d.cfg.Pulse.Period,
		"min_us", d.cfg.Pulse.MinPulse,
		"max_us", d.cfg.Pulse.MaxPulse,
		"initial_us", d.current,
	)
	return nil
}

// SetPulseWidth clamps us into the safe range and latches it for the next
// period. It returns the width that was applied.
func (d *Driver) SetPulseWidth(us uint32) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.configured {
		return 0, ErrNotConfigured
	}

	applied := d.cfg.Pulse.Clamp(us)
	if err := d.gen.Latch(applied); err != nil {
		d.events.Log(log.Event{
			Timestamp: time.Now(),
			Component: log.ComponentActuator,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Message: err.Error(), Context: "latch"},
		})
		return d.current, fmt.Errorf("latch %d us: %w", applied, err)
	}
	d.current = applied

	d.events.Log(log.Event{
		Timestamp: time.Now(),
		Component: log.ComponentActuator,
		Category:  log.CategoryActuation,
		Actuation: &log.ActuationEvent{
			Requested: us,
			Applied:   applied,
			Clamped:   applied != us,
		},
	})
	d.debugLog("pulse width latched", "requested_us", us, "applied_us", applied)

	return applied, nil
}

// Open moves the servo to the open position.
func (d *Driver) Open() (uint32, error) {
	return d.SetPulseWidth(d.cfg.OpenPulse)
}

// Close moves the servo to the closed position.
func (d *Driver) Close() (uint32, error) {
	return d.SetPulseWidth(d.cfg.ClosedPulse)
}

// Configured reports whether Configure has succeeded.
func (d *Driver) Configured() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured
}

// PulseWidth returns the most recently latched width.
func (d *Driver) PulseWidth() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Status returns the current driver state.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		PulseConfig: d.cfg.Pulse,
		Pin:         d.cfg.Pin,
		Current:     d.current,
		Configured:  d.configured,
	}
}

// Release stops the waveform. The driver must be configured again before
// further use.
func (d *Driver) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.configured {
		return nil
	}
	d.configured = false
	return d.gen.Release()
}

func (d *Driver) debugLog(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
