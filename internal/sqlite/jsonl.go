package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// documentRecord is one line of <collection>.jsonl.
type documentRecord struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (r documentRecord) todo() types.Todo {
	return types.Todo{ID: r.ID, Text: r.Text, Completed: r.Completed}
}

// collectionPath returns the JSONL file backing the configured collection.
func collectionPath(config types.Config) string {
	return filepath.Join(config.DataDir, config.GetCollection()+".jsonl")
}

// timestamp returns the current time in the format stored in JSONL.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// initJSONLFile creates an empty JSONL file if none exists.
func initJSONLFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return f.Close()
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("writing newline: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryRecords reads every row of the collection in insertion order.
// The caller must hold b.mu.
func (b *Backend) queryRecords(ctx context.Context, q querier) ([]documentRecord, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+joinColumns(collectionColumns)+" FROM "+b.collection+" ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var records []documentRecord
	for rows.Next() {
		var r documentRecord
		var completed int
		if err := rows.Scan(&r.ID, &r.Text, &completed, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		r.Completed = completed != 0
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return records, nil
}

// persistLocked rewrites the collection JSONL file from the rows visible to
// q. The caller must hold b.mu write lock.
func (b *Backend) persistLocked(ctx context.Context, q querier) error {
	records, err := b.queryRecords(ctx, q)
	if err != nil {
		return err
	}

	lines := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshaling document for JSONL: %w", err)
		}
		lines = append(lines, data)
	}

	if err := writeJSONL(collectionPath(b.config), lines); err != nil {
		return fmt.Errorf("persist %s: %w", b.config.GetCollection(), err)
	}
	return nil
}
