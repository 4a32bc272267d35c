package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wingthing/wingthing-go/pkg/discovery"
	"github.com/wingthing/wingthing-go/pkg/log"
)

// DefaultQueueSize is the capacity of the event queue.
const DefaultQueueSize = 16

// Connectivity errors.
var (
	ErrQueueFull      = errors.New("connectivity event queue full")
	ErrNotBound       = errors.New("station not bound to a manager")
	ErrRetryExhausted = errors.New("association retries exhausted")
)

// Config configures a Manager.
type Config struct {
	// Credentials passed to every association attempt.
	Credentials Credentials

	// Record is published on address acquisition, with Addrs filled in.
	Record discovery.Record

	// Retry is the reconnection schedule.
	Retry BackoffConfig

	// MaxRetries caps consecutive failed attempts. Zero means unlimited.
	MaxRetries int

	// QueueSize is the event queue capacity. Default: DefaultQueueSize.
	QueueSize int

	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives state changes. Nil disables capture.
	EventLogger log.Logger
}

// DefaultConfig returns a Config with the default identity and schedule.
func DefaultConfig() Config {
	return Config{
		Record:    discovery.DefaultRecord(),
		Retry:     DefaultBackoffConfig(),
		QueueSize: DefaultQueueSize,
	}
}

// Manager owns the connection state. State changes only in response to
// events, either posted to the queue consumed by Run or applied directly
// with Handle.
type Manager struct {
	cfg       Config
	station   Station
	publisher Publisher
	backoff   *Backoff

	queue chan Event

	mu        sync.RWMutex
	state     State
	epoch     string
	addr      netip.Addr
	published bool
	failures  int
	retry     *time.Timer

	onStateChange func(oldState, newState State)

	logger *slog.Logger
	events log.Logger
}

// NewManager creates a manager in StateDisconnected. publisher may be nil,
// in which case nothing is announced.
func NewManager(cfg Config, station Station, publisher Publisher) *Manager {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Manager{
		cfg:       cfg,
		station:   station,
		publisher: publisher,
		backoff:   NewBackoff(cfg.Retry),
		queue:     make(chan Event, size),
		state:     StateDisconnected,
		logger:    cfg.Logger,
		events:    log.OrNoop(cfg.EventLogger),
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Epoch returns the ID of the current connection epoch, or "" before the
// first LinkStart.
func (m *Manager) Epoch() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// Addr returns the acquired address. It is only valid in
// StateAddressAcquired.
func (m *Manager) Addr() netip.Addr {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAddressAcquired {
		return netip.Addr{}
	}
	return m.addr
}

// OnStateChange sets a callback for state changes. It runs on the
// goroutine handling the event.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// Post enqueues ev for Run. It never blocks; ErrQueueFull is returned if
// the queue has no room.
func (m *Manager) Post(ev Event) error {
	select {
	case m.queue <- ev:
		return nil
	default:
		m.debugLog("event dropped", "event", ev.Type.String())
		return ErrQueueFull
	}
}

// Run handles queued events until ctx is done. Any pending retry is
// cancelled on return.
func (m *Manager) Run(ctx context.Context) error {
	defer m.stopRetry()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.queue:
			m.Handle(ctx, ev)
		}
	}
}

// Handle applies one event synchronously. Events not in the transition
// table are ignored. Handle must not be called concurrently with itself
// or with Run.
func (m *Manager) Handle(ctx context.Context, ev Event) {
	m.mu.Lock()
	from := m.state
	t, ok := lookup(from, ev.Type)
	if ok && t.action == actionPublish && !ev.Addr.IsValid() {
		ok = false
	}
	if !ok {
		m.mu.Unlock()
		m.debugLog("event ignored", "state", from.String(), "event", ev.Type.String())
		return
	}

	if ev.Type == EventLinkStart {
		m.stopRetryLocked()
		if ev.Reason != ReasonRetry {
			m.failures = 0
			m.backoff.Reset()
		}
		m.epoch = uuid.NewString()
		m.published = false
		m.addr = netip.Addr{}
	}
	if t.action == actionPublish {
		m.addr = ev.Addr
	}
	m.state = t.to
	epoch := m.epoch
	cb := m.onStateChange
	m.mu.Unlock()

	m.events.Log(log.Event{
		Timestamp: time.Now(),
		EpochID:   epoch,
		Component: log.ComponentConnectivity,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: from.String(),
			NewState: t.to.String(),
			Trigger:  ev.Type.String(),
			Reason:   ev.Reason,
		},
	})
	m.debugLog("state change",
		"from", from.String(),
		"to", t.to.String(),
		"event", ev.Type.String(),
		"epoch_id", epoch,
	)
	if cb != nil && from != t.to {
		cb(from, t.to)
	}

	switch t.action {
	case actionAssociate:
		m.associate(ctx)
	case actionPublish:
		m.publish(ctx, ev.Addr)
	case actionRetry:
		m.scheduleRetry(ev)
	}
}

func (m *Manager) associate(ctx context.Context) {
	m.debugLog("associating", "credentials", m.cfg.Credentials)
	if err := m.station.Associate(ctx, m.cfg.Credentials); err != nil {
		m.logError("associate", err)
		// The station never got the attempt off the ground.
		if perr := m.Post(Event{Type: EventAssociationFailed, Reason: err.Error()}); perr != nil {
			m.logError("associate", perr)
		}
	}
}

func (m *Manager) publish(ctx context.Context, addr netip.Addr) {
	m.mu.Lock()
	m.failures = 0
	already := m.published
	m.published = true
	m.mu.Unlock()
	m.backoff.Reset()

	if already || m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, m.cfg.Record.WithAddrs(addr)); err != nil {
		m.logError("publish", err)
		return
	}
	m.debugLog("name published", "hostname", m.cfg.Record.Hostname, "addr", addr)
}

func (m *Manager) scheduleRetry(cause Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++
	if m.cfg.MaxRetries > 0 && m.failures > m.cfg.MaxRetries {
		m.logErrorLocked("retry", fmt.Errorf("%w after %d failures: %s", ErrRetryExhausted, m.failures, cause.Reason))
		return
	}

	delay := m.backoff.Next()
	m.stopRetryLocked()
	m.retry = time.AfterFunc(delay, func() {
		if err := m.Post(Event{Type: EventLinkStart, Reason: ReasonRetry}); err != nil {
			m.logError("retry", err)
		}
	})
	m.debugLog("retry scheduled",
		"delay", delay,
		"attempt", m.backoff.Attempts(),
		"cause", cause.Type.String(),
	)
}

// Failures returns the number of consecutive failures since the last
// acquired address.
func (m *Manager) Failures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures
}

func (m *Manager) stopRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopRetryLocked()
}

func (m *Manager) stopRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

func (m *Manager) logError(where string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.logErrorLocked(where, err)
}

func (m *Manager) logErrorLocked(where string, err error) {
	m.events.Log(log.Event{
		Timestamp: time.Now(),
		EpochID:   m.epoch,
		Component: log.ComponentConnectivity,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: err.Error(), Context: where},
	})
	if m.logger != nil {
		m.logger.Warn("connectivity error", "context", where, "error", err)
	}
}

func (m *Manager) debugLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

// Compile-time interface satisfaction check.
var _ Poster = (*Manager)(nil)
