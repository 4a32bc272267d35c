package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// Service constants.
const (
	// ServiceTypeHTTP is the DNS-SD service type of the control surface.
	ServiceTypeHTTP = "_http._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultHostname is the name the device answers to ("love.local").
	DefaultHostname = "love"

	// DefaultServiceLabel is the human-readable service instance name.
	DefaultServiceLabel = "wingthing latch"

	// DefaultPort is the HTTP port advertised when none is given.
	DefaultPort = 80

	// MaxLabelLen is the maximum length of a single DNS label.
	MaxLabelLen = 63

	// DefaultTTL is the record TTL.
	DefaultTTL = 120 * time.Second
)

// Discovery errors.
var (
	ErrInvalidHostname = errors.New("invalid hostname")
	ErrInvalidLabel    = errors.New("invalid service label")
	ErrNoAddress       = errors.New("no address to advertise")
	ErrInvalidPort     = errors.New("invalid port")
	ErrNotPublished    = errors.New("nothing published")
)

// Record is everything published about the device.
type Record struct {
	// Hostname without the ".local" suffix.
	Hostname string

	// ServiceLabel is the DNS-SD instance name.
	ServiceLabel string

	// ServiceType defaults to ServiceTypeHTTP.
	ServiceType string

	// Port of the HTTP server.
	Port int

	// Addrs the hostname resolves to. At least one is required.
	Addrs []netip.Addr

	// Text holds TXT record entries.
	Text TXTRecordMap
}

// DefaultRecord returns a record with the default identity and TXT entries.
// Addresses are left empty; they are only known once the link is up.
func DefaultRecord() Record {
	return Record{
		Hostname:     DefaultHostname,
		ServiceLabel: DefaultServiceLabel,
		ServiceType:  ServiceTypeHTTP,
		Port:         DefaultPort,
		Text:         DefaultTXT(""),
	}
}

// WithAddrs returns a copy of r resolving to addrs.
func (r Record) WithAddrs(addrs ...netip.Addr) Record {
	r.Addrs = append([]netip.Addr(nil), addrs...)
	return r
}

// Validate checks that the record can be published.
func (r Record) Validate() error {
	if err := ValidateHostname(r.Hostname); err != nil {
		return err
	}
	if r.ServiceLabel == "" || len(r.ServiceLabel) > MaxLabelLen {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, r.ServiceLabel)
	}
	if r.Port <= 0 || r.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, r.Port)
	}
	for _, a := range r.Addrs {
		if a.IsValid() && !a.IsUnspecified() {
			return nil
		}
	}
	return ErrNoAddress
}

// ValidateHostname checks that name is a single DNS label.
func ValidateHostname(name string) error {
	if name == "" || len(name) > MaxLabelLen {
		return fmt.Errorf("%w: %q", ErrInvalidHostname, name)
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return fmt.Errorf("%w: %q", ErrInvalidHostname, name)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidHostname, name)
		}
	}
	return nil
}

// Advertiser publishes the device's name and service.
type Advertiser interface {
	// Publish announces r, replacing anything published before.
	Publish(ctx context.Context, r Record) error

	// Withdraw stops announcing. It returns ErrNotPublished if nothing is
	// currently published.
	Withdraw() error
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives advertisement events. Nil disables capture.
	EventLogger log.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		TTL: DefaultTTL,
	}
}
