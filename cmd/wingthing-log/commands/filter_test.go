package commands

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/wingthing/wingthing-go/pkg/log"
)

func countEvents(t *testing.T, path string) int {
	t.Helper()
	r, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer r.Close()

	n := 0
	for {
		if _, err := r.Next(); err == io.EOF {
			return n
		} else if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		n++
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())

	tests := []struct {
		name string
		opts FilterOptions
		want int
	}{
		{"all", FilterOptions{}, 7},
		{"epoch", FilterOptions{EpochID: epochB}, 1},
		{"component", FilterOptions{Component: "supervisor"}, 2},
		{"category", FilterOptions{Category: "state"}, 3},
		{"time window", FilterOptions{TimeStart: "2026-03-14T07:30:01Z", TimeEnd: "2026-03-14T07:30:10Z"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Output = filepath.Join(t.TempDir(), "out.cbor")
			n, err := RunFilter(path, tt.opts)
			if err != nil {
				t.Fatalf("RunFilter failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("RunFilter wrote %d events, want %d", n, tt.want)
			}
			if got := countEvents(t, tt.opts.Output); got != tt.want {
				t.Errorf("output has %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestRunFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	out := filepath.Join(t.TempDir(), "out.cbor")

	for _, opts := range []FilterOptions{
		{Output: out, TimeStart: "yesterday"},
		{Output: out, TimeEnd: "tomorrow"},
		{Output: out, Component: "radio"},
		{Output: out, Category: "message"},
	} {
		if _, err := RunFilter(path, opts); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}

func TestRunFilterOutputChecks(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())

	if _, err := RunFilter(path, FilterOptions{}); !errors.Is(err, ErrOutputRequired) {
		t.Errorf("missing output: got %v, want ErrOutputRequired", err)
	}
	if _, err := RunFilter(path, FilterOptions{Output: path}); !errors.Is(err, ErrSameFile) {
		t.Errorf("same file: got %v, want ErrSameFile", err)
	}
	if got := countEvents(t, path); got != 7 {
		t.Errorf("input has %d events after refused filter, want 7", got)
	}
}

func TestFilterOptionsFilter(t *testing.T) {
	f, err := FilterOptions{
		EpochID:   epochA,
		TimeStart: "2026-03-14T07:30:00Z",
		Component: "Dispatch",
	}.Filter()
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if f.EpochID != epochA {
		t.Errorf("EpochID = %q, want %q", f.EpochID, epochA)
	}
	if f.TimeStart == nil || !f.TimeStart.Equal(time.Date(2026, 3, 14, 7, 30, 0, 0, time.UTC)) {
		t.Errorf("TimeStart = %v", f.TimeStart)
	}
	if f.TimeEnd != nil || f.Category != nil {
		t.Error("unset options should leave the filter open")
	}
	if f.Component == nil || *f.Component != log.ComponentDispatch {
		t.Errorf("Component = %v, want dispatch", f.Component)
	}
}
