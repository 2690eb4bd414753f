// Package sqlite implements the todos document store on SQLite.
// SQLite is the query engine; a JSONL file per collection is the source of
// truth and is rewritten atomically after every mutation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// dbFileName is the SQLite file rebuilt from JSONL on every Attach.
const dbFileName = "todos.db"

// Backend implements types.Backend using SQLite as the query engine
// and a JSONL file as the source of truth.
type Backend struct {
	mu         sync.RWMutex
	attached   bool
	config     types.Config
	db         *sql.DB
	collection string // quoted table name for the collection
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, builds a fresh SQLite schema,
// and loads the collection's JSONL file into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	if config.DataDir == "" {
		config.DataDir = "."
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return err
	}

	// The database is a disposable index over the JSONL file.
	dbPath := filepath.Join(config.DataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// One connection keeps rowid order and transactions on a single handle.
	db.SetMaxOpenConns(1)

	collection := quoteIdent(config.GetCollection())
	if _, err := db.Exec(createCollectionSQL(collection)); err != nil {
		db.Close()
		return fmt.Errorf("create schema: %w", err)
	}

	jsonlPath := collectionPath(config)
	if err := initJSONLFile(jsonlPath); err != nil {
		db.Close()
		return err
	}

	if err := loadJSONL(db, collection, jsonlPath); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.collection = collection
	b.attached = true
	return nil
}

// Detach releases all resources held by the backend.
// After Detach, all operations return ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	return nil
}

// Create inserts a new document and returns its UUID v7.
func (b *Backend) Create(ctx context.Context, doc types.Document) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return "", types.ErrDetached
	}

	id := generateUUID()
	now := timestamp()
	err := b.mutateLocked(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO "+b.collection+" (doc_id, text, completed, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			id, doc.Text, boolToInt(doc.Completed), now, now)
		if err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// List returns every document in insertion order.
func (b *Backend) List(ctx context.Context) ([]types.Todo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}

	records, err := b.queryRecords(ctx, b.db)
	if err != nil {
		return nil, err
	}

	todos := make([]types.Todo, 0, len(records))
	for _, r := range records {
		todos = append(todos, r.todo())
	}
	return todos, nil
}

// Update writes the non-nil patch fields to the document with id.
func (b *Backend) Update(ctx context.Context, id string, patch types.Patch) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if patch.Empty() {
		return types.ErrInvalidData
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}

	sets := []string{"updated_at = ?"}
	args := []any{timestamp()}
	if patch.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *patch.Text)
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, boolToInt(*patch.Completed))
	}
	args = append(args, id)

	return b.mutateLocked(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE "+b.collection+" SET "+joinColumns(sets)+" WHERE doc_id = ?", args...)
		if err != nil {
			return fmt.Errorf("updating document: %w", err)
		}
		return requireRow(res, "updating document")
	})
}

// Delete removes the document with id.
func (b *Backend) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}

	return b.mutateLocked(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+b.collection+" WHERE doc_id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		return requireRow(res, "deleting document")
	})
}

// mutateLocked runs fn in a transaction and rewrites the JSONL file from the
// transaction's view before committing. A failed JSONL write rolls the
// change back, so SQLite never holds a document the file does not.
// The caller must hold b.mu write lock.
func (b *Backend) mutateLocked(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := b.persistLocked(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		// The file already holds the change; rewrite it from the committed rows.
		if perr := b.persistLocked(ctx, b.db); perr != nil {
			return fmt.Errorf("commit transaction: %w (restoring JSONL: %v)", err, perr)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// requireRow reports ErrNotFound when res touched no rows.
func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// generateUUID generates a new UUID v7 for document IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
