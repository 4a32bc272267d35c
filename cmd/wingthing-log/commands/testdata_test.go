package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/wingthing/wingthing-go/pkg/log"
)

const (
	epochA = "0b4a3c7e-1111-4d2a-9a51-5c1f8e0a0001"
	epochB = "6d90f2aa-2222-4c3b-8b62-7d2e9f1b0002"
)

var baseTime = time.Date(2026, 3, 14, 7, 30, 0, 0, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.cbor")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

// sessionEvents is a boot, one association, one trigger and a fatal error.
func sessionEvents() []log.Event {
	return []log.Event{
		{
			Timestamp: baseTime,
			Component: log.ComponentSupervisor,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				OldState: "INIT", NewState: "SETTINGS",
			},
		},
		{
			Timestamp: baseTime.Add(100 * time.Millisecond),
			EpochID:   epochA,
			Component: log.ComponentConnectivity,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				OldState: "DISCONNECTED", NewState: "ASSOCIATING", Trigger: "LINK_START",
			},
		},
		{
			Timestamp: baseTime.Add(2 * time.Second),
			EpochID:   epochA,
			Component: log.ComponentDiscovery,
			Category:  log.CategoryAdvertisement,
			Advertisement: &log.AdvertisementEvent{
				Hostname: "love", ServiceLabel: "wingthing latch", Port: 80,
				Addrs: []string{"192.168.1.40"},
			},
		},
		{
			Timestamp: baseTime.Add(5 * time.Second),
			EpochID:   epochA,
			Component: log.ComponentDispatch,
			Category:  log.CategoryExchange,
			Exchange: &log.ExchangeEvent{
				ExchangeID: "ex-1", Method: "GET", Path: "/open", Status: 200, BodySize: 4,
				RemoteAddr: "192.168.1.7:51234", Duration: 350 * time.Microsecond,
			},
		},
		{
			Timestamp: baseTime.Add(5*time.Second + time.Millisecond),
			EpochID:   epochA,
			Component: log.ComponentActuator,
			Category:  log.CategoryActuation,
			Actuation: &log.ActuationEvent{Requested: 2500, Applied: 2000, Clamped: true},
		},
		{
			Timestamp: baseTime.Add(10 * time.Second),
			EpochID:   epochB,
			Component: log.ComponentConnectivity,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				OldState: "ASSOCIATED", NewState: "DISCONNECTED", Trigger: "DISCONNECTED", Reason: "beacon timeout",
			},
		},
		{
			Timestamp: baseTime.Add(11 * time.Second),
			Component: log.ComponentSupervisor,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Message: "pwm peripheral already claimed", Context: "ACTUATOR", Fatal: true},
		},
	}
}
