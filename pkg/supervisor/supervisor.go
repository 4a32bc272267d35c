package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/wingthing/wingthing-go/pkg/actuator"
	"github.com/wingthing/wingthing-go/pkg/assets"
	"github.com/wingthing/wingthing-go/pkg/connectivity"
	"github.com/wingthing/wingthing-go/pkg/discovery"
	"github.com/wingthing/wingthing-go/pkg/dispatch"
	"github.com/wingthing/wingthing-go/pkg/log"
	"github.com/wingthing/wingthing-go/pkg/relatch"
	"github.com/wingthing/wingthing-go/pkg/settings"
)

// DefaultHeartbeatInterval is how often the idle loop logs.
const DefaultHeartbeatInterval = time.Second

// Supervisor errors.
var (
	ErrBootstrap     = errors.New("bootstrap failed")
	ErrAlreadyBooted = errors.New("already booted")
)

// Config configures a Supervisor.
type Config struct {
	// Store holds the persisted settings. Required.
	Store *settings.Store

	// Generator is the PWM backend. Required.
	Generator actuator.Generator

	// Station is the radio stack. Default: a connectivity.HostStation.
	// A station with a Bind(connectivity.Poster) method is bound to the
	// manager.
	Station connectivity.Station

	// Advertiser publishes the device name. Default: mDNS.
	Advertiser discovery.Advertiser

	// Assets are the static payloads. Default: assets.Default().
	Assets *assets.Bundle

	// ListenAddr overrides the port from the settings when non-empty.
	ListenAddr string

	// Version is advertised in the TXT record.
	Version string

	// HeartbeatInterval is the idle log period.
	// Default: DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration

	// Logger receives operational output. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives captured events. Nil disables capture.
	EventLogger log.Logger
}

// Status is a snapshot of the running device.
type Status struct {
	Phase      Phase
	Link       connectivity.State
	Epoch      string
	Addr       string
	ListenAddr string
	Actuator   actuator.Status

	// Relatch is the time left until the servo closes again, zero when
	// nothing is pending.
	Relatch time.Duration
}

type binder interface {
	Bind(connectivity.Poster)
}

// Supervisor owns every component and their start order.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger
	events log.Logger

	mu       sync.Mutex
	phase    Phase
	settings *settings.Settings

	driver     *actuator.Driver
	relatch    *relatch.Relatch
	manager    *connectivity.Manager
	server     *dispatch.Server
	advertiser discovery.Advertiser

	cancel  context.CancelFunc
	managed sync.WaitGroup
}

// New creates a supervisor. Nothing is started until Boot.
func New(cfg Config) *Supervisor {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &Supervisor{
		cfg:    cfg,
		logger: cfg.Logger,
		events: log.OrNoop(cfg.EventLogger),
		phase:  PhaseInit,
	}
}

// Boot runs the start sequence. The first failing step aborts the boot,
// stops whatever was started and returns an error wrapping ErrBootstrap.
func (s *Supervisor) Boot(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseInit {
		s.mu.Unlock()
		return ErrAlreadyBooted
	}
	s.phase = PhaseSettings
	s.mu.Unlock()
	s.logPhase(PhaseInit, PhaseSettings, "")

	steps := []struct {
		phase Phase
		run   func(context.Context) error
	}{
		{PhaseSettings, s.initSettings},
		{PhaseConnectivity, s.startConnectivity},
		{PhaseDispatcher, s.startDispatcher},
		{PhaseActuator, s.configureActuator},
	}

	for i, step := range steps {
		if i > 0 {
			s.setPhase(step.phase, "")
		}
		if err := step.run(ctx); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrBootstrap, step.phase, err)
			s.logFatal(err)
			s.stop(context.Background())
			s.setPhase(PhaseFailed, err.Error())
			return err
		}
	}

	s.setPhase(PhaseIdle, "")
	return nil
}

// Run boots, idles until ctx is done, then shuts down.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Boot(ctx); err != nil {
		return err
	}
	s.Idle(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), dispatch.DefaultShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Idle logs a heartbeat every HeartbeatInterval until ctx is done.
func (s *Supervisor) Idle(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.logger != nil {
				st := s.Status()
				s.logger.Debug("heartbeat",
					"link", st.Link.String(),
					"addr", st.Addr,
					"pulse_us", st.Actuator.Current,
				)
			}
		}
	}
}

// Shutdown stops the server, withdraws the advertisement, stops the
// connectivity manager and releases the actuator.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == PhaseStopped || s.phase == PhaseInit {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	err := s.stop(ctx)
	s.setPhase(PhaseStopped, "")
	return err
}

func (s *Supervisor) stop(ctx context.Context) error {
	var errs []error
	if s.server != nil {
		errs = append(errs, s.server.Shutdown(ctx))
	}
	if s.cancel != nil {
		s.cancel()
		s.managed.Wait()
	}
	if s.advertiser != nil {
		if err := s.advertiser.Withdraw(); err != nil && !errors.Is(err, discovery.ErrNotPublished) {
			errs = append(errs, err)
		}
	}
	if s.relatch != nil {
		s.relatch.Cancel()
	}
	if s.driver != nil {
		errs = append(errs, s.driver.Release())
	}
	return errors.Join(errs...)
}

func (s *Supervisor) initSettings(context.Context) error {
	if s.cfg.Store == nil {
		return errors.New("no settings store")
	}
	st, err := s.cfg.Store.Init()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = st
	s.mu.Unlock()
	return nil
}

func (s *Supervisor) startConnectivity(ctx context.Context) error {
	adv := s.cfg.Advertiser
	if adv == nil {
		advCfg := discovery.DefaultAdvertiserConfig()
		advCfg.Logger = s.logger
		advCfg.EventLogger = s.cfg.EventLogger
		adv = discovery.NewMDNSAdvertiser(advCfg)
	}
	s.advertiser = adv

	station := s.cfg.Station
	if station == nil {
		station = connectivity.NewHostStation()
	}

	mcfg := s.settings.ConnectivityConfig(s.cfg.Version)
	if s.cfg.ListenAddr != "" {
		if port, err := portOf(s.cfg.ListenAddr); err == nil {
			mcfg.Record.Port = port
		}
	}
	mcfg.Logger = s.logger
	mcfg.EventLogger = s.cfg.EventLogger

	m := connectivity.NewManager(mcfg, station, adv)
	if b, ok := station.(binder); ok {
		b.Bind(m)
	}
	s.mu.Lock()
	s.manager = m
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.managed.Add(1)
	go func() {
		defer s.managed.Done()
		_ = m.Run(runCtx)
	}()

	return m.Post(connectivity.Event{Type: connectivity.EventLinkStart, Reason: "boot"})
}

func (s *Supervisor) startDispatcher(ctx context.Context) error {
	acfg := s.settings.ActuatorConfig()
	acfg.Logger = s.logger
	acfg.EventLogger = s.cfg.EventLogger
	if s.cfg.Generator == nil {
		return errors.New("no pwm generator")
	}
	driver := actuator.NewDriver(s.cfg.Generator, acfg)
	s.mu.Lock()
	s.driver = driver
	s.mu.Unlock()

	var trigger dispatch.Actuator = driver
	if hold := s.settings.Actuator.HoldTime; hold > 0 {
		r, err := relatch.New(driver, relatch.Config{
			Hold:        hold,
			Rest:        acfg.ClosedPulse,
			Logger:      s.logger,
			EventLogger: s.cfg.EventLogger,
		})
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.relatch = r
		s.mu.Unlock()
		trigger = r
	}

	bundle := assets.Default()
	if s.cfg.Assets != nil {
		bundle = *s.cfg.Assets
	}

	d := dispatch.NewDispatcher(dispatch.Config{
		Logger:      s.logger,
		EventLogger: s.cfg.EventLogger,
	})
	if err := d.HandleAll(dispatch.DefaultRoutes(bundle, trigger, acfg.OpenPulse)); err != nil {
		return err
	}
	d.Freeze()

	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":" + strconv.Itoa(s.settings.HTTP.Port)
	}
	srv := dispatch.NewServer(dispatch.ServerConfig{Addr: addr, Logger: s.logger}, d)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	return nil
}

func (s *Supervisor) configureActuator(context.Context) error {
	return s.driver.Configure()
}

// Status returns a snapshot of the device.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	st := Status{Phase: s.phase}
	manager, server, driver, rl := s.manager, s.server, s.driver, s.relatch
	s.mu.Unlock()

	if manager != nil {
		st.Link = manager.State()
		st.Epoch = manager.Epoch()
		if a := manager.Addr(); a.IsValid() {
			st.Addr = a.String()
		}
	}
	if server != nil {
		if a := server.Addr(); a != nil {
			st.ListenAddr = a.String()
		}
	}
	if driver != nil {
		st.Actuator = driver.Status()
	}
	if rl != nil {
		st.Relatch, _ = rl.Pending()
	}
	return st
}

// Phase returns the current lifecycle phase.
func (s *Supervisor) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Driver returns the actuator driver, or nil before boot.
func (s *Supervisor) Driver() *actuator.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver
}

// Manager returns the connectivity manager, or nil before boot.
func (s *Supervisor) Manager() *connectivity.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager
}

// Settings returns the settings loaded at boot.
func (s *Supervisor) Settings() *settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Supervisor) setPhase(p Phase, reason string) {
	s.mu.Lock()
	old := s.phase
	s.phase = p
	s.mu.Unlock()
	s.logPhase(old, p, reason)
}

func (s *Supervisor) logPhase(old, p Phase, reason string) {
	s.events.Log(log.Event{
		Timestamp: time.Now(),
		Component: log.ComponentSupervisor,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: old.String(),
			NewState: p.String(),
			Reason:   reason,
		},
	})
	if s.logger != nil {
		s.logger.Debug("boot phase", "from", old.String(), "to", p.String())
	}
}

func (s *Supervisor) logFatal(err error) {
	s.events.Log(log.Event{
		Timestamp: time.Now(),
		Component: log.ComponentSupervisor,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: err.Error(), Context: "boot", Fatal: true},
	})
	if s.logger != nil {
		s.logger.Error("boot failed", "error", err)
	}
}

func portOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(p)
}
