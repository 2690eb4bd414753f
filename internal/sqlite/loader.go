package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// loadJSONL reads the collection JSONL file and inserts its records into
// the collection table. Loading is transactional: all succeed or the table
// stays empty. Malformed lines, records without an id, and duplicate ids are
// skipped. Unknown fields are ignored.
func loadJSONL(db *sql.DB, table, path string) error {
	records, err := readJSONL(path)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRecords(tx, table, records); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts parsed JSONL records into the collection table.
func insertRecords(tx *sql.Tx, table string, records []json.RawMessage) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(collectionColumns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		table, joinColumns(collectionColumns), placeholders,
	))
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, raw := range records {
		var rec documentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.ID == "" {
			continue
		}
		if rec.CreatedAt == "" {
			rec.CreatedAt = timestamp()
		}
		if rec.UpdatedAt == "" {
			rec.UpdatedAt = rec.CreatedAt
		}
		if _, err := stmt.Exec(rec.ID, rec.Text, boolToInt(rec.Completed), rec.CreatedAt, rec.UpdatedAt); err != nil {
			return fmt.Errorf("inserting %s: %w", rec.ID, err)
		}
	}
	return nil
}
