package log

import (
	"sync"
	"testing"
	"time"
)

// recordingLogger captures events for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMultiLoggerFansOut(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	m := NewMultiLogger(a, nil, b)

	m.Log(Event{Timestamp: time.Now(), Category: CategoryState})
	m.Log(Event{Timestamp: time.Now(), Category: CategoryError})

	if a.count() != 2 || b.count() != 2 {
		t.Errorf("got %d and %d events, want 2 each", a.count(), b.count())
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	r := &recordingLogger{}
	if OrNoop(r) != Logger(r) {
		t.Error("OrNoop should return the given logger")
	}
}

type closingLogger struct {
	recordingLogger
	closed bool
}

func (c *closingLogger) Close() error {
	c.closed = true
	return nil
}

func TestMultiLoggerCloseClosesChildren(t *testing.T) {
	c := &closingLogger{}
	m := NewMultiLogger(&recordingLogger{}, c)

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !c.closed {
		t.Error("closable child was not closed")
	}
}
