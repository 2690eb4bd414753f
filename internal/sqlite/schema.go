package sqlite

import "strings"

// createCollectionSQL returns the DDL for a document collection table.
// The implicit rowid preserves insertion order for List.
func createCollectionSQL(table string) string {
	return `CREATE TABLE ` + table + ` (
    doc_id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
}

// collectionColumns lists the columns loaded from and written to JSONL, in
// table order. JSONL field names differ only for doc_id, which is "id".
var collectionColumns = []string{"doc_id", "text", "completed", "created_at", "updated_at"}

// quoteIdent quotes a validated collection name for use as a table name.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// joinColumns joins column names with commas.
func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
