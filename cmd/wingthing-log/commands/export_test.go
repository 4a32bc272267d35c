package commands

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportToJSONL(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	outPath := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, FormatJSONL, outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[3]), &first); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if first["EpochID"] != epochA {
		t.Errorf("EpochID = %v, want %s", first["EpochID"], epochA)
	}
	if _, ok := first["Exchange"]; !ok {
		t.Error("expected Exchange payload in line 4")
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	outPath := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, FormatCSV, outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 8 {
		t.Fatalf("expected header + 7 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("header = %v", rows[0])
	}

	exchange := rows[4]
	if exchange[4] != "exchange" || exchange[5] != "GET /open" || exchange[6] != "200" {
		t.Errorf("exchange row = %v", exchange)
	}
	state := rows[2]
	if state[5] != "DISCONNECTED->ASSOCIATING" || state[6] != "" {
		t.Errorf("state row = %v", state)
	}
}

func TestExportToSQLite(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	dbPath := filepath.Join(t.TempDir(), "events.db")

	if err := RunExport(path, FormatSQLite, dbPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	// A second export appends.
	if err := RunExport(path, FormatSQLite, dbPath); err != nil {
		t.Fatalf("second RunExport failed: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 14 {
		t.Errorf("rows = %d, want 14", total)
	}

	var opens int
	err = db.QueryRow(`SELECT COUNT(*) FROM events WHERE type = 'exchange' AND detail = 'GET /open' AND status = 200`).Scan(&opens)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if opens != 2 {
		t.Errorf("open exchanges = %d, want 2", opens)
	}

	var noEpoch int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events WHERE epoch_id IS NULL`).Scan(&noEpoch); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if noEpoch != 4 {
		t.Errorf("rows without epoch = %d, want 4", noEpoch)
	}
}

func TestExportSQLiteRequiresOutput(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	if err := RunExport(path, FormatSQLite, ""); !errors.Is(err, ErrOutputRequired) {
		t.Errorf("err = %v, want ErrOutputRequired", err)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out.xml"))
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("err = %v, want unknown format", err)
	}
}
