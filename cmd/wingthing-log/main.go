// Command wingthing-log is a tool for viewing and analyzing wingthing event
// logs.
//
// Event logs are written by wingthing when started with -event-log.
//
// Usage:
//
//	wingthing-log <command> [flags] <file.cbor>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL, CSV or SQLite
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	wingthing-log view events.cbor
//
//	# View only actuator events
//	wingthing-log view -component actuator events.cbor
//
//	# Append to a SQLite database for ad hoc queries
//	wingthing-log export -format sqlite -o events.db events.cbor
//
//	# Keep one connection epoch
//	wingthing-log filter -epoch 0b4a3c7e-... -o epoch.cbor events.cbor
//
//	# Show statistics
//	wingthing-log stats events.cbor
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wingthing/wingthing-go/cmd/wingthing-log/commands"
)

const usage = `wingthing-log - wingthing Event Log Analyzer

Usage:
  wingthing-log <command> [flags] <file.cbor>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL, CSV or SQLite
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "wingthing-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// logPath returns the single positional argument or exits with usage.
func logPath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func newFlagSet(name, summary, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "wingthing-log %s - %s\n\nUsage:\n  wingthing-log %s\n\nFlags:\n", name, summary, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format", "view [flags] <file.cbor>")
	component := fs.String("component", "", "Filter by component (supervisor, connectivity, discovery, dispatch, actuator, settings)")
	category := fs.String("category", "", "Filter by category (state, exchange, actuation, advertisement, error)")
	epoch := fs.String("epoch", "", "Filter by connection epoch ID")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	filter := commands.ViewFilter{EpochID: *epoch}
	if *component != "" {
		c, err := commands.ParseComponentFlag(*component)
		if err != nil {
			fail(err)
		}
		filter.Component = &c
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSONL, CSV or SQLite", "export [flags] <file.cbor>")
	format := fs.String("format", commands.FormatJSONL, "Output format (jsonl, csv, sqlite)")
	output := fs.String("o", "", "Output file (default: stdout; required for sqlite)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file", "filter [flags] <file.cbor>")
	output := fs.String("o", "", "Output file (required)")
	epoch := fs.String("epoch", "", "Filter by connection epoch ID")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	component := fs.String("component", "", "Filter by component")
	category := fs.String("category", "", "Filter by category")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, commands.FilterOptions{
		Output:    *output,
		EpochID:   *epoch,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Component: *component,
		Category:  *category,
	})
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the log file", "stats <file.cbor>")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
