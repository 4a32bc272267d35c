package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByComponent map[log.Component]int
	EventsByCategory  map[log.Category]int
	Epochs            map[string]*EpochStats
	Exchanges         int
	Triggers          int
	Clamped           int
	Errors            int
	FatalErrors       int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// EpochStats holds statistics for a single connection epoch.
type EpochStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Published bool
	Addrs     []string
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := collectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func collectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByComponent: make(map[log.Component]int),
		EventsByCategory:  make(map[log.Category]int),
		Epochs:            make(map[string]*EpochStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByComponent[event.Component]++
		stats.EventsByCategory[event.Category]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		if event.EpochID != "" {
			ep, ok := stats.Epochs[event.EpochID]
			if !ok {
				ep = &EpochStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
				stats.Epochs[event.EpochID] = ep
			}
			ep.Events++
			if event.Timestamp.After(ep.LastSeen) {
				ep.LastSeen = event.Timestamp
			}
			if event.Advertisement != nil {
				ep.Published = true
				ep.Addrs = event.Advertisement.Addrs
			}
		}

		switch {
		case event.Exchange != nil:
			stats.Exchanges++
		case event.Actuation != nil:
			stats.Triggers++
			if event.Actuation.Clamped {
				stats.Clamped++
			}
		case event.Error != nil:
			stats.Errors++
			if event.Error.Fatal {
				stats.FatalErrors++
			}
		}
	}

	return stats, nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== wingthing Event Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Component:")
	for _, c := range []log.Component{
		log.ComponentSupervisor, log.ComponentSettings, log.ComponentConnectivity,
		log.ComponentDiscovery, log.ComponentDispatch, log.ComponentActuator,
	} {
		if count := stats.EventsByComponent[c]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{
		log.CategoryState, log.CategoryExchange, log.CategoryActuation,
		log.CategoryAdvertisement, log.CategoryError,
	} {
		if count := stats.EventsByCategory[c]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "HTTP Exchanges: %d\n", stats.Exchanges)
	fmt.Fprintf(w, "Actuations:     %d (%d clamped)\n", stats.Triggers, stats.Clamped)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Epochs: %d\n", len(stats.Epochs))
	if len(stats.Epochs) > 0 {
		type epochInfo struct {
			id    string
			stats *EpochStats
		}
		epochs := make([]epochInfo, 0, len(stats.Epochs))
		for id, es := range stats.Epochs {
			epochs = append(epochs, epochInfo{id, es})
		}
		sort.Slice(epochs, func(i, j int) bool {
			return epochs[i].stats.FirstSeen.Before(epochs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, e := range epochs {
			duration := e.stats.LastSeen.Sub(e.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenEpoch(e.id), e.stats.Events, duration)
			if e.stats.Published {
				fmt.Fprintf(w, "             Published: %v\n", e.stats.Addrs)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d", stats.Errors)
		if stats.FatalErrors > 0 {
			fmt.Fprintf(w, " (%d fatal)", stats.FatalErrors)
		}
		fmt.Fprintln(w)
	}
}
