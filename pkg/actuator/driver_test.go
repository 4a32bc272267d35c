package actuator

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// mockGenerator is a testify mock of Generator.
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Claim(pin int, period, initial uint32) error {
	return m.Called(pin, period, initial).Error(0)
}

func (m *mockGenerator) Latch(compare uint32) error {
	return m.Called(compare).Error(0)
}

func (m *mockGenerator) Release() error {
	return m.Called().Error(0)
}

// recordingLogger captures events.
type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingLogger) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingLogger) actuations() []*log.ActuationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*log.ActuationEvent
	for _, e := range r.events {
		if e.Actuation != nil {
			out = append(out, e.Actuation)
		}
	}
	return out
}

func newConfiguredDriver(t *testing.T) (*Driver, *SimGenerator) {
	t.Helper()
	gen := NewSimGenerator()
	d := NewDriver(gen, DefaultConfig())
	require.NoError(t, d.Configure())
	return d, gen
}

func TestDriverConfigureHomesClosed(t *testing.T) {
	d, gen := newConfiguredDriver(t)

	assert.True(t, d.Configured())
	assert.Equal(t, DefaultMinPulse, d.PulseWidth())

	// The very first period already carries a valid width.
	pulse, ok := gen.Boundary()
	require.True(t, ok)
	assert.Equal(t, DefaultMinPulse, pulse)
}

func TestDriverConfigureTwice(t *testing.T) {
	d, _ := newConfiguredDriver(t)
	assert.ErrorIs(t, d.Configure(), ErrAlreadyConfigured)
}

func TestDriverConfigureFailures(t *testing.T) {
	t.Run("PeripheralBusy", func(t *testing.T) {
		gen := NewSimGenerator()
		require.NoError(t, gen.Claim(4, DefaultPeriod, DefaultMinPulse))

		d := NewDriver(gen, DefaultConfig())
		err := d.Configure()
		assert.ErrorIs(t, err, ErrConfigure)
		assert.ErrorIs(t, err, ErrPeripheralBusy)
		assert.False(t, d.Configured())
	})

	t.Run("InvalidPin", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Pin = SimMaxPin + 1
		d := NewDriver(NewSimGenerator(), cfg)
		err := d.Configure()
		assert.ErrorIs(t, err, ErrConfigure)
		assert.ErrorIs(t, err, ErrInvalidPin)
	})

	t.Run("InvalidRange", func(t *testing.T) {
		gen := &mockGenerator{}
		cfg := DefaultConfig()
		cfg.Pulse.MinPulse = 2500
		d := NewDriver(gen, cfg)
		err := d.Configure()
		assert.ErrorIs(t, err, ErrInvalidConfig)
		gen.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDriverSetPulseWidthBeforeConfigure(t *testing.T) {
	gen := &mockGenerator{}
	d := NewDriver(gen, DefaultConfig())

	_, err := d.SetPulseWidth(1500)
	assert.ErrorIs(t, err, ErrNotConfigured)
	gen.AssertNotCalled(t, "Latch", mock.Anything)
}

func TestDriverSetPulseWidthClamps(t *testing.T) {
	tests := []struct {
		name      string
		requested uint32
		want      uint32
	}{
		{"zero", 0, DefaultMinPulse},
		{"below min", 999, DefaultMinPulse},
		{"at min", DefaultMinPulse, DefaultMinPulse},
		{"midpoint", 1500, 1500},
		{"at max", DefaultMaxPulse, DefaultMaxPulse},
		{"above max", 2001, DefaultMaxPulse},
		{"full period", DefaultPeriod, DefaultMaxPulse},
		{"max uint32", ^uint32(0), DefaultMaxPulse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, gen := newConfiguredDriver(t)

			applied, err := d.SetPulseWidth(tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, applied)
			assert.Equal(t, tt.want, d.PulseWidth())

			pulse, _ := gen.Boundary()
			assert.Equal(t, tt.want, pulse)
			assert.GreaterOrEqual(t, pulse, DefaultMinPulse)
			assert.LessOrEqual(t, pulse, DefaultMaxPulse)
		})
	}
}

func TestDriverLastWriteWinsAtBoundary(t *testing.T) {
	d, gen := newConfiguredDriver(t)
	gen.Boundary()

	_, err := d.SetPulseWidth(1200)
	require.NoError(t, err)
	_, err = d.SetPulseWidth(1800)
	require.NoError(t, err)

	// Nothing changes until the period ends.
	assert.Equal(t, DefaultMinPulse, gen.Active())

	pulse, _ := gen.Boundary()
	assert.Equal(t, uint32(1800), pulse)
	assert.NotContains(t, gen.History(), uint32(1200))
}

func TestDriverConcurrentWritersStayInRange(t *testing.T) {
	d, gen := newConfiguredDriver(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = d.SetPulseWidth(uint32(i*400 + j))
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		pulse, _ := gen.Boundary()
		require.GreaterOrEqual(t, pulse, DefaultMinPulse)
		require.LessOrEqual(t, pulse, DefaultMaxPulse)
		select {
		case <-done:
			last, _ := gen.Boundary()
			assert.Equal(t, d.PulseWidth(), last)
			return
		default:
		}
	}
}

func TestDriverOpenClose(t *testing.T) {
	d, gen := newConfiguredDriver(t)

	applied, err := d.Open()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPulse, applied)

	applied, err = d.Close()
	require.NoError(t, err)
	assert.Equal(t, DefaultMinPulse, applied)

	pulse, _ := gen.Boundary()
	assert.Equal(t, DefaultMinPulse, pulse)
}

func TestDriverLatchError(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Claim", DefaultPin, DefaultPeriod, DefaultMinPulse).Return(nil).Once()
	gen.On("Latch", uint32(2000)).Return(errors.New("bus fault")).Once()

	d := NewDriver(gen, DefaultConfig())
	require.NoError(t, d.Configure())

	applied, err := d.SetPulseWidth(2000)
	assert.Error(t, err)
	assert.Equal(t, DefaultMinPulse, applied, "failed latch keeps the previous width")
	assert.Equal(t, DefaultMinPulse, d.PulseWidth())
	gen.AssertExpectations(t)
}

func TestDriverLogsActuations(t *testing.T) {
	events := &recordingLogger{}
	cfg := DefaultConfig()
	cfg.EventLogger = events

	d := NewDriver(NewSimGenerator(), cfg)
	require.NoError(t, d.Configure())

	_, _ = d.SetPulseWidth(1500)
	_, _ = d.SetPulseWidth(5000)

	acts := events.actuations()
	require.Len(t, acts, 2)
	assert.False(t, acts[0].Clamped)
	assert.True(t, acts[1].Clamped)
	assert.Equal(t, uint32(5000), acts[1].Requested)
	assert.Equal(t, DefaultMaxPulse, acts[1].Applied)
}

func TestDriverRelease(t *testing.T) {
	d, gen := newConfiguredDriver(t)

	require.NoError(t, d.Release())
	assert.False(t, d.Configured())
	assert.False(t, gen.Claimed())

	_, err := d.SetPulseWidth(1500)
	assert.ErrorIs(t, err, ErrNotConfigured)

	// Releasing an unconfigured driver is a no-op.
	assert.NoError(t, d.Release())

	// The peripheral can be claimed again.
	assert.NoError(t, d.Configure())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"default", func(*Config) {}, nil},
		{"negative pin", func(c *Config) { c.Pin = -1 }, ErrInvalidPin},
		{"zero period", func(c *Config) { c.Pulse.Period = 0 }, ErrInvalidConfig},
		{"inverted range", func(c *Config) { c.Pulse.MinPulse, c.Pulse.MaxPulse = 2000, 1000 }, ErrInvalidConfig},
		{"max beyond period", func(c *Config) { c.Pulse.MaxPulse = DefaultPeriod }, ErrInvalidConfig},
		{"open outside range", func(c *Config) { c.OpenPulse = 2100 }, ErrInvalidConfig},
		{"closed outside range", func(c *Config) { c.ClosedPulse = 900 }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
