// Package storetest provides an in-memory types.Store for tests, with
// per-operation failure injection and call counters.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// ErrInjected is the default error returned by a failing operation.
var ErrInjected = errors.New("injected store failure")

// Op names an operation for failure injection and counting.
type Op string

// Store operations.
const (
	OpCreate Op = "create"
	OpList   Op = "list"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Store is an in-memory document collection.
type Store struct {
	mu     sync.Mutex
	order  []string
	docs   map[string]types.Document
	nextID int
	fail   map[Op]error
	calls  map[Op]int
}

// New returns an empty Store. Seed documents keep their IDs and order.
func New(seed ...types.Todo) *Store {
	s := &Store{
		docs:  make(map[string]types.Document),
		fail:  make(map[Op]error),
		calls: make(map[Op]int),
	}
	for _, t := range seed {
		s.order = append(s.order, t.ID)
		s.docs[t.ID] = types.Document{Text: t.Text, Completed: t.Completed}
	}
	return s
}

// Fail makes every later call of op return err (ErrInjected when nil).
func (s *Store) Fail(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	s.fail[op] = err
}

// Recover clears injected failures for op.
func (s *Store) Recover(op Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fail, op)
}

// Calls returns how many times op was invoked, failed calls included.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Get returns the stored document for id.
func (s *Store) Get(id string) (types.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	return d, ok
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Store) begin(op Op) error {
	s.calls[op]++
	return s.fail[op]
}

// Create implements types.Store.
func (s *Store) Create(ctx context.Context, doc types.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpCreate); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var id string
	for {
		s.nextID++
		id = fmt.Sprintf("doc-%d", s.nextID)
		if _, taken := s.docs[id]; !taken {
			break
		}
	}
	s.order = append(s.order, id)
	s.docs[id] = doc
	return id, nil
}

// List implements types.Store.
func (s *Store) List(ctx context.Context) ([]types.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpList); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	todos := make([]types.Todo, 0, len(s.order))
	for _, id := range s.order {
		d := s.docs[id]
		todos = append(todos, types.Todo{ID: id, Text: d.Text, Completed: d.Completed})
	}
	return todos, nil
}

// Update implements types.Store.
func (s *Store) Update(ctx context.Context, id string, patch types.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpUpdate); err != nil {
		return err
	}
	if id == "" {
		return types.ErrInvalidID
	}
	if patch.Empty() {
		return types.ErrInvalidData
	}
	d, ok := s.docs[id]
	if !ok {
		return types.ErrNotFound
	}
	s.docs[id] = patch.Apply(d)
	return nil
}

// Delete implements types.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpDelete); err != nil {
		return err
	}
	if _, ok := s.docs[id]; !ok {
		return types.ErrNotFound
	}
	delete(s.docs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
