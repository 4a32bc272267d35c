package commands

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingthing/wingthing-go/pkg/actuator"
)

// scriptReader yields its script once, then io.EOF forever and cancels.
type scriptReader struct {
	mu     sync.Mutex
	data   []byte
	cancel context.CancelFunc
}

func (r *scriptReader) ReadByte() (byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.data) == 0 {
		r.cancel()
		return 0, io.EOF
	}
	b := r.data[0]
	r.data = r.data[1:]
	return b, nil
}

func newDriver(t *testing.T) (*actuator.Driver, *actuator.SimGenerator) {
	t.Helper()
	gen := actuator.NewSimGenerator()
	d := actuator.NewDriver(gen, actuator.DefaultConfig())
	require.NoError(t, d.Configure())
	return d, gen
}

func runScript(t *testing.T, c Controller, script string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out bytes.Buffer
	Run(ctx, c, &scriptReader{data: []byte(script), cancel: cancel}, &out)
	return out.String()
}

func TestRunOpenClose(t *testing.T) {
	d, gen := newDriver(t)

	out := runScript(t, d, "O")
	assert.Contains(t, out, "open: 2000 us")
	shadow, _ := gen.Shadow()
	assert.Equal(t, actuator.DefaultMaxPulse, shadow)

	out = runScript(t, d, "C")
	assert.Contains(t, out, "close: 1000 us")
	assert.Equal(t, actuator.DefaultMinPulse, d.PulseWidth())
}

func TestRunPosition(t *testing.T) {
	d, _ := newDriver(t)

	tests := []struct {
		in   string
		want uint32
	}{
		{"P0", 1000},
		{"P9", 2000},
		{"P3", 1333},
	}
	for _, tt := range tests {
		runScript(t, d, tt.in)
		assert.Equal(t, tt.want, d.PulseWidth(), tt.in)
	}

	out := runScript(t, d, "Px")
	assert.Contains(t, out, "error: invalid input")
}

func TestRunIgnoresUnknownFlags(t *testing.T) {
	d, _ := newDriver(t)

	out := runScript(t, d, "\r\nzzO")
	assert.Equal(t, "open: 2000 us\n", out)
}

func TestRunStatusAndHelp(t *testing.T) {
	d, _ := newDriver(t)

	out := runScript(t, d, "SH")
	assert.Contains(t, out, "status: GPIO18 1000 us (range 1000-2000, period 20000)")
	assert.Contains(t, out, "Available Commands:")
	for _, cmd := range commands {
		assert.Contains(t, out, string(cmd.Flag)+": ")
	}
}

func TestRunNotConfigured(t *testing.T) {
	d := actuator.NewDriver(actuator.NewSimGenerator(), actuator.DefaultConfig())

	out := runScript(t, d, "SO")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "status: not configured", lines[0])
	assert.Contains(t, lines[1], actuator.ErrNotConfigured.Error())
}

func TestRunStopsOnCancel(t *testing.T) {
	d, _ := newDriver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		Run(ctx, d, &scriptReader{data: []byte("O"), cancel: cancel}, io.Discard)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, actuator.DefaultMinPulse, d.PulseWidth())
}

func TestLookup(t *testing.T) {
	cmd, ok := Lookup('P')
	require.True(t, ok)
	assert.Equal(t, uint(1), cmd.InputSize)

	_, ok = Lookup('Q')
	assert.False(t, ok)
}
