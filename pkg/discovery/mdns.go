package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// server is the part of *zeroconf.Server the advertiser uses.
type server interface {
	Shutdown()
}

// registration is everything handed to the mDNS responder.
type registration struct {
	instance string
	service  string
	domain   string
	port     int
	host     string
	ips      []string
	text     []string
	ifaces   []net.Interface
	ttl      uint32
}

// register starts a responder. Tests replace it.
var register = func(r registration) (server, error) {
	var opts []zeroconf.ServerOption
	if r.ttl > 0 {
		opts = append(opts, zeroconf.TTL(r.ttl))
	}
	return zeroconf.RegisterProxy(r.instance, r.service, r.domain, r.port, r.host, r.ips, r.text, r.ifaces, opts...)
}

// MDNSAdvertiser implements Advertiser using zeroconf. It holds at most one
// responder at a time.
type MDNSAdvertiser struct {
	config AdvertiserConfig
	events log.Logger

	mu        sync.Mutex
	server    server
	published *Record
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{
		config: config,
		events: log.OrNoop(config.EventLogger),
	}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Publish implements Advertiser. The previous responder is shut down once
// the new one is registered, so republishing never leaves two records. If
// registration fails the previous record stays published.
func (a *MDNSAdvertiser) Publish(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ServiceType == "" {
		r.ServiceType = ServiceTypeHTTP
	}
	if err := r.Validate(); err != nil {
		return err
	}

	ips := make([]string, 0, len(r.Addrs))
	addrs := make([]string, 0, len(r.Addrs))
	for _, addr := range r.Addrs {
		if !addr.IsValid() || addr.IsUnspecified() {
			continue
		}
		ips = append(ips, addr.Unmap().String())
		addrs = append(addrs, addr.String())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	srv, err := register(registration{
		instance: r.ServiceLabel,
		service:  r.ServiceType,
		domain:   Domain,
		port:     r.Port,
		host:     r.Hostname,
		ips:      ips,
		text:     r.Text.Strings(),
		ifaces:   a.getInterfaces(),
		ttl:      uint32(a.config.TTL / time.Second),
	})
	if err != nil {
		// The previous record, if any, stays announced.
		return fmt.Errorf("failed to register %s service: %w", r.ServiceType, err)
	}

	republish := a.server != nil
	if republish {
		a.server.Shutdown()
	}
	a.server = srv
	published := r.WithAddrs(r.Addrs...)
	a.published = &published

	a.events.Log(log.Event{
		Timestamp: time.Now(),
		Component: log.ComponentDiscovery,
		Category:  log.CategoryAdvertisement,
		Advertisement: &log.AdvertisementEvent{
			Hostname:     r.Hostname,
			ServiceLabel: r.ServiceLabel,
			Port:         r.Port,
			Addrs:        addrs,
			Republish:    republish,
		},
	})
	a.debugLog("mdns record published",
		"hostname", r.Hostname+"."+Domain,
		"service", r.ServiceType,
		"port", r.Port,
		"addrs", addrs,
		"republish", republish,
	)
	return nil
}

// Withdraw implements Advertiser.
func (a *MDNSAdvertiser) Withdraw() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotPublished
	}
	a.server.Shutdown()
	a.server = nil
	a.published = nil
	a.debugLog("mdns record withdrawn")
	return nil
}

// Published returns the currently announced record, if any.
func (a *MDNSAdvertiser) Published() (Record, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.published == nil {
		return Record{}, false
	}
	return *a.published, true
}

func (a *MDNSAdvertiser) debugLog(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Debug(msg, args...)
	}
}

// Compile-time interface satisfaction check.
var _ Advertiser = (*MDNSAdvertiser)(nil)
