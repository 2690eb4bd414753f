package types

import (
	"context"
	"errors"
)

// Store is the remote document collection holding task records.
// Every method is a single awaited round trip; implementations do not retry.
type Store interface {
	// Create writes a new document and returns the ID the store assigned.
	Create(ctx context.Context, doc Document) (string, error)

	// List returns every document in the collection in creation order.
	List(ctx context.Context) ([]Todo, error)

	// Update writes the non-nil fields of patch to the document with id.
	// Returns ErrNotFound if no such document exists.
	Update(ctx context.Context, id string, patch Patch) error

	// Delete removes the document with id.
	// Returns ErrNotFound if no such document exists.
	Delete(ctx context.Context, id string) error
}

// Backend is a Store with an attach/detach lifecycle.
type Backend interface {
	Store

	// Attach connects the backend described by config. Returns
	// ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error
}

// Store lifecycle errors.
var (
	ErrDetached        = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Document operation errors.
var (
	ErrNotFound    = errors.New("todo not found")
	ErrInvalidID   = errors.New("invalid todo ID")
	ErrInvalidData = errors.New("invalid todo data")
)

// Operation failure kinds. Controller errors wrap one of these together with
// the underlying cause.
var (
	ErrLoadFailure  = errors.New("load failed")
	ErrWriteFailure = errors.New("write failed")
)
