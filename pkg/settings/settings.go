package settings

import (
	"errors"
	"fmt"
	"time"

	"github.com/wingthing/wingthing-go/pkg/actuator"
	"github.com/wingthing/wingthing-go/pkg/connectivity"
	"github.com/wingthing/wingthing-go/pkg/discovery"
	"github.com/wingthing/wingthing-go/pkg/relatch"
)

// CurrentVersion is the current version of the settings file format.
const CurrentVersion = 1

// Settings errors.
var (
	ErrCorrupt      = errors.New("settings file corrupt")
	ErrNewerVersion = errors.New("settings file written by a newer version")
	ErrInvalid      = errors.New("invalid settings")
)

// Settings is the persisted device configuration.
type Settings struct {
	// Version is the file format version.
	Version int `yaml:"version"`

	// SavedAt is when the settings were last saved.
	SavedAt time.Time `yaml:"saved_at,omitempty"`

	Network  Network  `yaml:"network"`
	Identity Identity `yaml:"identity"`
	HTTP     HTTP     `yaml:"http"`
	Actuator Actuator `yaml:"actuator"`
	Retry    Retry    `yaml:"retry"`
}

// Network holds the access point credentials.
type Network struct {
	SSID        string `yaml:"ssid"`
	Passphrase  string `yaml:"passphrase"`
	MinAuthMode string `yaml:"min_auth_mode"`
}

// Identity is what the device advertises.
type Identity struct {
	Hostname     string `yaml:"hostname"`
	ServiceLabel string `yaml:"service_label"`
}

// HTTP configures the control surface.
type HTTP struct {
	Port int `yaml:"port"`
}

// Actuator holds the servo wiring and travel.
type Actuator struct {
	Pin         int                  `yaml:"pin"`
	Pulse       actuator.PulseConfig `yaml:",inline"`
	OpenPulse   uint32               `yaml:"open_pulse_us"`
	ClosedPulse uint32               `yaml:"closed_pulse_us"`

	// HoldTime returns the servo to the closed position this long after it
	// was opened. Zero leaves it open.
	HoldTime time.Duration `yaml:"hold_time,omitempty"`
}

// Retry is the reconnection schedule.
type Retry struct {
	Backoff    connectivity.BackoffConfig `yaml:",inline"`
	MaxRetries int                        `yaml:"max_retries"`
}

// Default returns settings with every field populated except the network
// credentials.
func Default() *Settings {
	act := actuator.DefaultConfig()
	return &Settings{
		Version: CurrentVersion,
		Network: Network{
			MinAuthMode: string(connectivity.AuthWPA2PSK),
		},
		Identity: Identity{
			Hostname:     discovery.DefaultHostname,
			ServiceLabel: discovery.DefaultServiceLabel,
		},
		HTTP: HTTP{Port: discovery.DefaultPort},
		Actuator: Actuator{
			Pin:         act.Pin,
			Pulse:       act.Pulse,
			OpenPulse:   act.OpenPulse,
			ClosedPulse: act.ClosedPulse,
		},
		Retry: Retry{
			Backoff: connectivity.DefaultBackoffConfig(),
		},
	}
}

// Validate checks ranges and identity.
func (s *Settings) Validate() error {
	if err := discovery.ValidateHostname(s.Identity.Hostname); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if s.Identity.ServiceLabel == "" || len(s.Identity.ServiceLabel) > discovery.MaxLabelLen {
		return fmt.Errorf("%w: service label %q", ErrInvalid, s.Identity.ServiceLabel)
	}
	if s.HTTP.Port <= 0 || s.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http port %d", ErrInvalid, s.HTTP.Port)
	}
	switch connectivity.AuthMode(s.Network.MinAuthMode) {
	case connectivity.AuthOpen, connectivity.AuthWPAPSK, connectivity.AuthWPA2PSK, connectivity.AuthWPA3PSK:
	default:
		return fmt.Errorf("%w: min auth mode %q", ErrInvalid, s.Network.MinAuthMode)
	}
	if s.Network.SSID != "" {
		if err := s.Credentials().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if err := s.ActuatorConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if s.Actuator.HoldTime != 0 {
		if err := relatch.ValidateHold(s.Actuator.HoldTime); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if s.Retry.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries %d", ErrInvalid, s.Retry.MaxRetries)
	}
	return nil
}

// ActuatorConfig converts the actuator section to a driver config.
func (s *Settings) ActuatorConfig() actuator.Config {
	cfg := actuator.DefaultConfig()
	cfg.Pin = s.Actuator.Pin
	cfg.Pulse = s.Actuator.Pulse
	cfg.OpenPulse = s.Actuator.OpenPulse
	cfg.ClosedPulse = s.Actuator.ClosedPulse
	return cfg
}

// Credentials returns the network section as association credentials.
func (s *Settings) Credentials() connectivity.Credentials {
	return connectivity.Credentials{
		SSID:        s.Network.SSID,
		Passphrase:  s.Network.Passphrase,
		MinAuthMode: connectivity.AuthMode(s.Network.MinAuthMode),
	}
}

// Record returns the advertisement for this identity. Addresses are filled
// in once the link is up.
func (s *Settings) Record(version string) discovery.Record {
	r := discovery.DefaultRecord()
	r.Hostname = s.Identity.Hostname
	r.ServiceLabel = s.Identity.ServiceLabel
	r.Port = s.HTTP.Port
	r.Text = discovery.DefaultTXT(version)
	return r
}

// ConnectivityConfig returns a manager config for these settings.
func (s *Settings) ConnectivityConfig(version string) connectivity.Config {
	cfg := connectivity.DefaultConfig()
	cfg.Credentials = s.Credentials()
	cfg.Record = s.Record(version)
	cfg.Retry = s.Retry.Backoff
	cfg.MaxRetries = s.Retry.MaxRetries
	return cfg
}
