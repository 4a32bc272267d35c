package commands

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// Export formats.
const (
	FormatJSONL  = "jsonl"
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// ErrOutputRequired is returned when a format cannot write to stdout.
var ErrOutputRequired = errors.New("output file (-o) required for this format")

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	if format == FormatSQLite {
		if output == "" {
			return ErrOutputRequired
		}
		_, err := exportSQLite(reader, output)
		return err
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case FormatJSONL:
		return exportJSONL(reader, w)
	case FormatCSV:
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv, sqlite)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

// csvHeader lists the flattened columns shared by the CSV and SQLite exports.
var csvHeader = []string{"timestamp", "epoch_id", "component", "category", "type", "detail", "status"}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		r := flatten(event)
		status := ""
		if r.status != 0 {
			status = strconv.Itoa(r.status)
		}
		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.EpochID,
			event.Component.String(),
			event.Category.String(),
			r.kind,
			r.detail,
			status,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// flatRow is the per-event summary written by the tabular exports.
type flatRow struct {
	kind   string
	detail string
	status int
}

func flatten(event log.Event) flatRow {
	switch {
	case event.StateChange != nil:
		sc := event.StateChange
		return flatRow{kind: "state", detail: sc.OldState + "->" + sc.NewState}
	case event.Exchange != nil:
		ex := event.Exchange
		return flatRow{kind: "exchange", detail: ex.Method + " " + ex.Path, status: ex.Status}
	case event.Actuation != nil:
		return flatRow{kind: "actuation", detail: strconv.FormatUint(uint64(event.Actuation.Applied), 10)}
	case event.Advertisement != nil:
		return flatRow{kind: "advertisement", detail: event.Advertisement.Hostname}
	case event.Error != nil:
		return flatRow{kind: "error", detail: event.Error.Message}
	default:
		return flatRow{kind: "unknown"}
	}
}
