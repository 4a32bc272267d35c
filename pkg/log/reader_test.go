package log

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEvents(t *testing.T, path string, events ...Event) {
	t.Helper()
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, e)
	}
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.wlog")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	writeEvents(t, path,
		Event{Timestamp: base, EpochID: "a", Component: ComponentConnectivity, Category: CategoryState,
			StateChange: &StateChangeEvent{OldState: "DISCONNECTED", NewState: "ASSOCIATING"}},
		Event{Timestamp: base.Add(time.Second), EpochID: "a", Component: ComponentDiscovery, Category: CategoryAdvertisement,
			Advertisement: &AdvertisementEvent{Hostname: "love", ServiceLabel: "latch", Port: 80}},
		Event{Timestamp: base.Add(2 * time.Second), EpochID: "b", Component: ComponentActuator, Category: CategoryActuation,
			Actuation: &ActuationEvent{Requested: 2000, Applied: 2000}},
	)

	category := CategoryActuation
	component := ComponentConnectivity
	start := base.Add(time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"epoch", Filter{EpochID: "a"}, 2},
		{"category", Filter{Category: &category}, 1},
		{"component", Filter{Component: &component}, 1},
		{"time start", Filter{TimeStart: &start}, 2},
		{"time end", Filter{TimeEnd: &start}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer r.Close()

			if got := len(readAll(t, r)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.wlog")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReaderHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.wlog")
	writeEvents(t, path)

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	h := r.Header()
	if h.Version != FormatVersion || h.Created.IsZero() {
		t.Errorf("header = %+v", h)
	}
	if got := readAll(t, r); len(got) != 0 {
		t.Errorf("got %d events from empty log", len(got))
	}
}

func TestReaderRejectsBadHeaders(t *testing.T) {
	dir := t.TempDir()

	foreign := filepath.Join(dir, "foreign.wlog")
	if err := os.WriteFile(foreign, []byte("not cbor at all"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(foreign); !errors.Is(err, ErrNotEventLog) {
		t.Errorf("foreign file: err = %v, want ErrNotEventLog", err)
	}

	empty := filepath.Join(dir, "empty.wlog")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(empty); !errors.Is(err, ErrNotEventLog) {
		t.Errorf("empty file: err = %v, want ErrNotEventLog", err)
	}

	newer := filepath.Join(dir, "newer.wlog")
	data, err := eventCodec.enc.Marshal(FileHeader{Magic: fileMagic, Version: FormatVersion + 1, Created: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(newer); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("newer file: err = %v, want ErrUnsupportedVersion", err)
	}
	if _, err := NewFileLogger(newer); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("appending to newer file: err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestReaderTruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.wlog")
	writeEvents(t, path,
		Event{Timestamp: time.Now(), Component: ComponentActuator, Category: CategoryActuation,
			Actuation: &ActuationEvent{Requested: 2000, Applied: 2000}},
		Event{Timestamp: time.Now(), Component: ComponentActuator, Category: CategoryActuation,
			Actuation: &ActuationEvent{Requested: 1000, Applied: 1000}},
	)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, info.Size()-3); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	got := readAll(t, r)
	if len(got) != 1 || got[0].Actuation.Applied != 2000 {
		t.Errorf("got %+v, want only the first event", got)
	}
	if !r.Truncated() {
		t.Error("Truncated() = false, want true")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	in := Event{
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC),
		EpochID:   "e",
		Component: ComponentDispatch,
		Category:  CategoryExchange,
		Exchange:  &ExchangeEvent{ExchangeID: "x", Method: "GET", Path: "/open", Status: 200, Duration: time.Millisecond},
	}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !out.Timestamp.Equal(in.Timestamp) || out.Exchange == nil || *out.Exchange != *in.Exchange {
		t.Errorf("round trip = %+v", out)
	}
}
