package connectivity

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"sync"

	"github.com/wingthing/wingthing-go/pkg/discovery"
)

// AuthMode is the weakest access point security the station accepts.
type AuthMode string

// Supported authentication thresholds.
const (
	AuthOpen    AuthMode = "OPEN"
	AuthWPAPSK  AuthMode = "WPA_PSK"
	AuthWPA2PSK AuthMode = "WPA2_PSK"
	AuthWPA3PSK AuthMode = "WPA3_PSK"
)

// Credentials identify the access point to join.
type Credentials struct {
	SSID        string
	Passphrase  string
	MinAuthMode AuthMode
}

// LogValue implements slog.LogValuer. The passphrase is never logged.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("ssid", c.SSID),
		slog.String("min_auth_mode", string(c.MinAuthMode)),
		slog.Bool("passphrase_set", c.Passphrase != ""),
	)
}

// Station is the radio stack. Associate starts an attempt and returns
// without waiting for it; the outcome is reported later as an Event
// delivered through Poster.Post.
type Station interface {
	Associate(ctx context.Context, creds Credentials) error
}

// Publisher announces the device once it has an address.
type Publisher interface {
	Publish(ctx context.Context, r discovery.Record) error
}

// Poster accepts events for asynchronous handling.
type Poster interface {
	Post(ev Event) error
}

// HostStation is a Station for a host that is already on a network. Each
// Associate reports Associated followed by AddressAcquired with the first
// usable interface address, or AssociationFailed if there is none.
type HostStation struct {
	mu   sync.Mutex
	sink Poster

	// addrs lists interface addresses. Tests replace it.
	addrs func() ([]net.Addr, error)
}

// NewHostStation creates a HostStation. Bind must be called before the
// first Associate.
func NewHostStation() *HostStation {
	return &HostStation{addrs: net.InterfaceAddrs}
}

// Bind sets where association outcomes are posted.
func (s *HostStation) Bind(p Poster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = p
}

// Associate implements Station. Credentials for a named network must yield
// a usable key, otherwise the attempt fails.
func (s *HostStation) Associate(ctx context.Context, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink == nil {
		return ErrNotBound
	}

	if creds.SSID != "" {
		if _, err := creds.PSK(); err != nil {
			return sink.Post(Event{Type: EventAssociationFailed, Reason: err.Error()})
		}
	}

	ifAddrs, err := s.addrs()
	if err != nil {
		return sink.Post(Event{Type: EventAssociationFailed, Reason: err.Error()})
	}
	addr, ok := pickAddr(ifAddrs)
	if !ok {
		return sink.Post(Event{Type: EventAssociationFailed, Reason: "no usable interface address"})
	}

	if err := sink.Post(Event{Type: EventAssociated}); err != nil {
		return err
	}
	return sink.Post(Event{Type: EventAddressAcquired, Addr: addr})
}

// pickAddr prefers a global IPv4 address, then a global IPv6 address.
func pickAddr(addrs []net.Addr) (netip.Addr, bool) {
	var v6 netip.Addr
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipNet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if !ip.IsGlobalUnicast() {
			continue
		}
		if ip.Is4() {
			return ip, true
		}
		if !v6.IsValid() {
			v6 = ip
		}
	}
	return v6, v6.IsValid()
}

// Compile-time interface satisfaction check.
var _ Station = (*HostStation)(nil)
