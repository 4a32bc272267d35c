package relatch

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// Hold limits.
const (
	// MinHold is the shortest allowed hold time.
	MinHold = 1 * time.Second

	// MaxHold is the longest allowed hold time.
	MaxHold = 24 * time.Hour
)

// ErrInvalidHold is returned for a hold time outside [MinHold, MaxHold].
var ErrInvalidHold = errors.New("invalid hold time")

// Actuator is the driver a Relatch wraps.
type Actuator interface {
	SetPulseWidth(us uint32) (uint32, error)
}

// Config configures a Relatch.
type Config struct {
	// Hold is how long the servo stays away from Rest.
	Hold time.Duration

	// Rest is the pulse width restored on expiry.
	Rest uint32

	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives expiry failures. Nil disables capture.
	EventLogger log.Logger
}

// ValidateHold checks d against the hold limits.
func ValidateHold(d time.Duration) error {
	if d < MinHold || d > MaxHold {
		return fmt.Errorf("%w: %s (want %s..%s)", ErrInvalidHold, d, MinHold, MaxHold)
	}
	return nil
}

// Relatch is an Actuator that schedules a return to rest after every
// actuation. It is safe for concurrent use.
type Relatch struct {
	act Actuator
	cfg Config

	mu       sync.Mutex
	timer    *time.Timer
	armedAt  time.Time
	gen      uint64
	onExpiry func(applied uint32, err error)

	logger *slog.Logger
	events log.Logger
}

// New wraps act. It returns ErrInvalidHold if cfg.Hold is out of range.
func New(act Actuator, cfg Config) (*Relatch, error) {
	if err := ValidateHold(cfg.Hold); err != nil {
		return nil, err
	}
	return &Relatch{
		act:    act,
		cfg:    cfg,
		logger: cfg.Logger,
		events: log.OrNoop(cfg.EventLogger),
	}, nil
}

// SetPulseWidth latches us through the wrapped actuator and, on success,
// arms or cancels the return to rest.
func (r *Relatch) SetPulseWidth(us uint32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	applied, err := r.act.SetPulseWidth(us)
	if err != nil {
		return applied, err
	}

	if applied == r.cfg.Rest {
		r.cancelLocked()
		return applied, nil
	}

	r.cancelLocked()
	r.gen++
	gen := r.gen
	r.armedAt = time.Now()
	r.timer = time.AfterFunc(r.cfg.Hold, func() { r.expire(gen) })
	r.debugLog("relatch armed", "applied_us", applied, "hold", r.cfg.Hold)

	return applied, nil
}

// Cancel drops a pending return to rest without moving the servo.
func (r *Relatch) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
}

// Pending reports whether a return to rest is scheduled and how long
// remains until it fires.
func (r *Relatch) Pending() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer == nil {
		return 0, false
	}
	remaining := r.cfg.Hold - time.Since(r.armedAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Hold returns the configured hold time.
func (r *Relatch) Hold() time.Duration {
	return r.cfg.Hold
}

// OnExpiry sets a callback run after each return to rest.
func (r *Relatch) OnExpiry(fn func(applied uint32, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpiry = fn
}

// expire latches the rest width unless the timer was replaced or cancelled
// after it fired. The actuator call is made under the lock so a concurrent
// actuation cannot be overwritten.
func (r *Relatch) expire(gen uint64) {
	r.mu.Lock()
	if r.timer == nil || r.gen != gen {
		r.mu.Unlock()
		return
	}
	r.timer = nil

	applied, err := r.act.SetPulseWidth(r.cfg.Rest)
	callback := r.onExpiry
	r.mu.Unlock()

	if err != nil {
		r.events.Log(log.Event{
			Timestamp: time.Now(),
			Component: log.ComponentActuator,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Message: err.Error(), Context: "relatch"},
		})
		if r.logger != nil {
			r.logger.Warn("relatch failed", "error", err)
		}
	} else {
		r.debugLog("relatch expired", "applied_us", applied)
	}

	if callback != nil {
		callback(applied, err)
	}
}

func (r *Relatch) cancelLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Relatch) debugLog(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
