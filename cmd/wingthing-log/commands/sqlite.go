package commands

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wingthing/wingthing-go/pkg/log"
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	epoch_id TEXT,
	component TEXT NOT NULL,
	category TEXT NOT NULL,
	type TEXT NOT NULL,
	detail TEXT,
	status INTEGER,
	payload_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_epoch_id ON events(epoch_id);
CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
`

// exportSQLite appends every event to the events table of the database at
// dbPath, creating it if needed. It returns the number of rows written.
func exportSQLite(reader *log.Reader, dbPath string) (int, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(eventsSchema); err != nil {
		return 0, fmt.Errorf("failed to migrate database: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO events (timestamp, epoch_id, component, category, type, detail, status, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read event: %w", err)
		}

		payload, err := json.Marshal(event)
		if err != nil {
			return count, fmt.Errorf("failed to encode event: %w", err)
		}

		r := flatten(event)
		var status sql.NullInt64
		if r.status != 0 {
			status = sql.NullInt64{Int64: int64(r.status), Valid: true}
		}
		var epoch sql.NullString
		if event.EpochID != "" {
			epoch = sql.NullString{String: event.EpochID, Valid: true}
		}

		if _, err := stmt.Exec(
			event.Timestamp.UTC(), epoch,
			event.Component.String(), event.Category.String(),
			r.kind, r.detail, status, string(payload),
		); err != nil {
			return count, fmt.Errorf("failed to insert event: %w", err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("failed to commit: %w", err)
	}
	return count, nil
}
