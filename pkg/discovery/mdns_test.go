package discovery

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	reg      registration
	shutdown bool
}

func (s *fakeServer) Shutdown() { s.shutdown = true }

// fakeResponder records every registration.
type fakeResponder struct {
	mu      sync.Mutex
	servers []*fakeServer
	err     error
}

func (f *fakeResponder) register(r registration) (server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeServer{reg: r}
	f.servers = append(f.servers, s)
	return s, nil
}

// live returns the registrations that have not been shut down.
func (f *fakeResponder) live() []*fakeServer {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeServer
	for _, s := range f.servers {
		if !s.shutdown {
			out = append(out, s)
		}
	}
	return out
}

func stubRegister(t *testing.T) *fakeResponder {
	t.Helper()
	f := &fakeResponder{}
	orig := register
	register = f.register
	t.Cleanup(func() { register = orig })
	return f
}

func testRecord() Record {
	return DefaultRecord().WithAddrs(netip.MustParseAddr("192.168.1.42"))
}

func TestMDNSAdvertiserPublish(t *testing.T) {
	f := stubRegister(t)
	a := NewMDNSAdvertiser(DefaultAdvertiserConfig())

	require.NoError(t, a.Publish(context.Background(), testRecord()))

	live := f.live()
	require.Len(t, live, 1)
	reg := live[0].reg
	assert.Equal(t, "love", reg.host)
	assert.Equal(t, DefaultServiceLabel, reg.instance)
	assert.Equal(t, ServiceTypeHTTP, reg.service)
	assert.Equal(t, Domain, reg.domain)
	assert.Equal(t, DefaultPort, reg.port)
	assert.Equal(t, []string{"192.168.1.42"}, reg.ips)
	assert.Equal(t, []string{"path=/", "trigger=/open"}, reg.text)
	assert.Equal(t, uint32(120), reg.ttl)

	rec, ok := a.Published()
	require.True(t, ok)
	assert.Equal(t, "love", rec.Hostname)
}

func TestMDNSAdvertiserRepublishIsIdempotent(t *testing.T) {
	f := stubRegister(t)
	a := NewMDNSAdvertiser(DefaultAdvertiserConfig())

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Publish(context.Background(), testRecord()))
	}

	assert.Len(t, f.servers, 3)
	assert.Len(t, f.live(), 1, "only one record may be announced")

	// A new address replaces the old one.
	moved := DefaultRecord().WithAddrs(netip.MustParseAddr("10.0.0.7"))
	require.NoError(t, a.Publish(context.Background(), moved))
	live := f.live()
	require.Len(t, live, 1)
	assert.Equal(t, []string{"10.0.0.7"}, live[0].reg.ips)
}

func TestMDNSAdvertiserPublishErrors(t *testing.T) {
	t.Run("NoAddress", func(t *testing.T) {
		f := stubRegister(t)
		a := NewMDNSAdvertiser(DefaultAdvertiserConfig())

		err := a.Publish(context.Background(), DefaultRecord())
		assert.ErrorIs(t, err, ErrNoAddress)
		assert.Empty(t, f.servers)
	})

	t.Run("InvalidHostname", func(t *testing.T) {
		stubRegister(t)
		a := NewMDNSAdvertiser(DefaultAdvertiserConfig())

		r := testRecord()
		r.Hostname = "not a host"
		assert.ErrorIs(t, a.Publish(context.Background(), r), ErrInvalidHostname)
	})

	t.Run("RegisterFails", func(t *testing.T) {
		f := stubRegister(t)
		f.err = errors.New("no multicast interface")
		a := NewMDNSAdvertiser(DefaultAdvertiserConfig())

		err := a.Publish(context.Background(), testRecord())
		assert.ErrorContains(t, err, "no multicast interface")
		_, ok := a.Published()
		assert.False(t, ok)
	})

	t.Run("RepublishFailureKeepsRecord", func(t *testing.T) {
		f := stubRegister(t)
		a := NewMDNSAdvertiser(DefaultAdvertiserConfig())
		require.NoError(t, a.Publish(context.Background(), testRecord()))

		f.mu.Lock()
		f.err = errors.New("socket closed")
		f.mu.Unlock()

		moved := DefaultRecord().WithAddrs(netip.MustParseAddr("10.0.0.7"))
		assert.ErrorContains(t, a.Publish(context.Background(), moved), "socket closed")

		live := f.live()
		require.Len(t, live, 1)
		assert.Equal(t, []string{"192.168.1.42"}, live[0].reg.ips)
		rec, ok := a.Published()
		require.True(t, ok)
		assert.Equal(t, testRecord().Addrs, rec.Addrs)
	})

	t.Run("Cancelled", func(t *testing.T) {
		f := stubRegister(t)
		a := NewMDNSAdvertiser(DefaultAdvertiserConfig())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, a.Publish(ctx, testRecord()), context.Canceled)
		assert.Empty(t, f.servers)
	})
}

func TestMDNSAdvertiserWithdraw(t *testing.T) {
	f := stubRegister(t)
	a := NewMDNSAdvertiser(AdvertiserConfig{TTL: 10 * time.Second})

	assert.ErrorIs(t, a.Withdraw(), ErrNotPublished)

	require.NoError(t, a.Publish(context.Background(), testRecord()))
	assert.Equal(t, uint32(10), f.servers[0].reg.ttl)

	require.NoError(t, a.Withdraw())
	assert.Empty(t, f.live())
	_, ok := a.Published()
	assert.False(t, ok)
}

func TestValidateHostname(t *testing.T) {
	valid := []string{"love", "latch-2", "A1"}
	for _, name := range valid {
		assert.NoError(t, ValidateHostname(name), name)
	}

	invalid := []string{"", "-love", "love-", "love.local", "lo ve", string(make([]byte, 64))}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateHostname(name), ErrInvalidHostname, name)
	}
}

func TestTXTRecords(t *testing.T) {
	txt := DefaultTXT("1.2.0")
	strs := txt.Strings()
	assert.Equal(t, []string{"path=/", "trigger=/open", "version=1.2.0"}, strs)
	assert.Equal(t, txt, ParseTXT(strs))

	parsed := ParseTXT([]string{"flag", "k=v=w", ""})
	assert.Equal(t, TXTRecordMap{"flag": "", "k": "v=w"}, parsed)
}
