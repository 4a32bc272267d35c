// Package commands implements the wingthing-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Component *log.Component
	Category  *log.Category
	EpochID   string
}

// RunView reads the log file and writes a human-readable listing to w.
func RunView(path string, filter ViewFilter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, log.Filter{
		EpochID:   filter.EpochID,
		Component: filter.Component,
		Category:  filter.Category,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	epoch := shortenEpoch(event.EpochID)
	if epoch == "" {
		epoch = "-"
	}

	fmt.Fprintf(w, "%s [epoch:%s] %-12s %s\n", ts, epoch, event.Component, eventLabel(event))

	switch {
	case event.StateChange != nil:
		sc := event.StateChange
		fmt.Fprintf(w, "  %s -> %s", sc.OldState, sc.NewState)
		if sc.Trigger != "" {
			fmt.Fprintf(w, " (%s)", sc.Trigger)
		}
		fmt.Fprintln(w)
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Exchange != nil:
		ex := event.Exchange
		fmt.Fprintf(w, "  %s %s -> %d (%d bytes)\n", ex.Method, ex.Path, ex.Status, ex.BodySize)
		if ex.RemoteAddr != "" {
			fmt.Fprintf(w, "  Peer: %s\n", ex.RemoteAddr)
		}
		if ex.Duration > 0 {
			fmt.Fprintf(w, "  Duration: %s\n", formatDuration(ex.Duration))
		}
	case event.Actuation != nil:
		a := event.Actuation
		fmt.Fprintf(w, "  Requested: %d us  Applied: %d us", a.Requested, a.Applied)
		if a.Clamped {
			fmt.Fprint(w, " (clamped)")
		}
		fmt.Fprintln(w)
	case event.Advertisement != nil:
		ad := event.Advertisement
		fmt.Fprintf(w, "  %s.local \"%s\" port %d\n", ad.Hostname, ad.ServiceLabel, ad.Port)
		if len(ad.Addrs) > 0 {
			fmt.Fprintf(w, "  Addrs: %s\n", strings.Join(ad.Addrs, ", "))
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  Error: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
		if event.Error.Fatal {
			fmt.Fprintln(w, "  Fatal: yes")
		}
	}

	fmt.Fprintln(w)
}

// eventLabel names the payload carried by event.
func eventLabel(event log.Event) string {
	switch {
	case event.StateChange != nil:
		return "State"
	case event.Exchange != nil:
		return "Exchange"
	case event.Actuation != nil:
		return "Actuation"
	case event.Advertisement != nil:
		return "Advertisement"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenEpoch returns the first 8 characters of the epoch ID.
func shortenEpoch(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	default:
		return d.Round(time.Millisecond).String()
	}
}

// ParseComponentFlag parses a component name from the command line.
func ParseComponentFlag(s string) (log.Component, error) {
	return parseComponent(s)
}

// ParseCategoryFlag parses a category name from the command line.
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

func parseComponent(s string) (log.Component, error) {
	switch strings.ToLower(s) {
	case "supervisor":
		return log.ComponentSupervisor, nil
	case "connectivity", "wifi":
		return log.ComponentConnectivity, nil
	case "discovery", "mdns":
		return log.ComponentDiscovery, nil
	case "dispatch", "http":
		return log.ComponentDispatch, nil
	case "actuator", "pwm":
		return log.ComponentActuator, nil
	case "settings":
		return log.ComponentSettings, nil
	default:
		return 0, fmt.Errorf("invalid component: %s (valid: supervisor, connectivity, discovery, dispatch, actuator, settings)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "state":
		return log.CategoryState, nil
	case "exchange":
		return log.CategoryExchange, nil
	case "actuation":
		return log.CategoryActuation, nil
	case "advertisement":
		return log.CategoryAdvertisement, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (valid: state, exchange, actuation, advertisement, error)", s)
	}
}
