package actuator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// Default waveform parameters, in microseconds.
const (
	// DefaultPeriod is the standard servo frame (50 Hz).
	DefaultPeriod uint32 = 20000

	// DefaultMinPulse is the closed end of the servo travel.
	DefaultMinPulse uint32 = 1000

	// DefaultMaxPulse is the open end of the servo travel.
	DefaultMaxPulse uint32 = 2000

	// DefaultPin is the GPIO the servo signal is wired to.
	DefaultPin = 18
)

// Actuator errors.
var (
	ErrNotConfigured     = errors.New("actuator not configured")
	ErrAlreadyConfigured = errors.New("actuator already configured")
	ErrConfigure         = errors.New("actuator configuration failed")
	ErrInvalidConfig     = errors.New("invalid actuator configuration")
	ErrPeripheralBusy    = errors.New("pwm peripheral already claimed")
	ErrInvalidPin        = errors.New("invalid pwm pin")
	ErrInvalidPeriod     = errors.New("invalid pwm period")
	ErrNotClaimed        = errors.New("pwm peripheral not claimed")
)

// PulseConfig describes the waveform: a fixed period and the safe pulse
// width range. All values are in microseconds.
type PulseConfig struct {
	Period   uint32 `yaml:"period_us"`
	MinPulse uint32 `yaml:"min_pulse_us"`
	MaxPulse uint32 `yaml:"max_pulse_us"`
}

// Validate checks that the range is non-empty and fits inside the period.
func (p PulseConfig) Validate() error {
	if p.Period == 0 {
		return fmt.Errorf("%w: period must be positive", ErrInvalidConfig)
	}
	if p.MinPulse == 0 || p.MinPulse > p.MaxPulse {
		return fmt.Errorf("%w: pulse range [%d, %d]", ErrInvalidConfig, p.MinPulse, p.MaxPulse)
	}
	if p.MaxPulse >= p.Period {
		return fmt.Errorf("%w: max pulse %d not below period %d", ErrInvalidConfig, p.MaxPulse, p.Period)
	}
	return nil
}

// Clamp saturates v into the configured range.
func (p PulseConfig) Clamp(v uint32) uint32 {
	return Clamp(v, p.MinPulse, p.MaxPulse)
}

// Clamp saturates v into [lo, hi].
func Clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Config configures a Driver.
type Config struct {
	// Pin is the GPIO number carrying the servo signal.
	Pin int

	// Pulse is the waveform definition.
	Pulse PulseConfig

	// OpenPulse is the width that releases the latch.
	OpenPulse uint32

	// ClosedPulse is the width the servo is homed to on Configure.
	ClosedPulse uint32

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// EventLogger receives actuation events. If nil, events are discarded.
	EventLogger log.Logger
}

// DefaultConfig returns a Config for a standard hobby servo.
func DefaultConfig() Config {
	return Config{
		Pin: DefaultPin,
		Pulse: PulseConfig{
			Period:   DefaultPeriod,
			MinPulse: DefaultMinPulse,
			MaxPulse: DefaultMaxPulse,
		},
		OpenPulse:   DefaultMaxPulse,
		ClosedPulse: DefaultMinPulse,
	}
}

// Validate checks the pulse range and that both named positions lie within it.
func (c Config) Validate() error {
	if c.Pin < 0 {
		return fmt.Errorf("%w: pin %d", ErrInvalidPin, c.Pin)
	}
	if err := c.Pulse.Validate(); err != nil {
		return err
	}
	if c.OpenPulse != c.Pulse.Clamp(c.OpenPulse) {
		return fmt.Errorf("%w: open pulse %d outside range", ErrInvalidConfig, c.OpenPulse)
	}
	if c.ClosedPulse != c.Pulse.Clamp(c.ClosedPulse) {
		return fmt.Errorf("%w: closed pulse %d outside range", ErrInvalidConfig, c.ClosedPulse)
	}
	return nil
}
