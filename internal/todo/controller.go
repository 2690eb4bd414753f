// Package todo implements the list controller: the single owner of the
// rendered list, the input field, and the session cache mirror. Every
// operation awaits one store call, then mutates the rendered list, then
// rewrites the full cache snapshot.
package todo

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mesh-intelligence/todos/internal/logging"
	"github.com/mesh-intelligence/todos/internal/metrics"
	"github.com/mesh-intelligence/todos/internal/prompt"
	"github.com/mesh-intelligence/todos/internal/search"
	"github.com/mesh-intelligence/todos/internal/session"
	"github.com/mesh-intelligence/todos/internal/view"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// EditPrompt is the message shown when asking for replacement text.
const EditPrompt = "Edit your task:"

// Operation names used in logs and metrics.
const (
	opLoad   = "load"
	opAdd    = "add"
	opDelete = "delete"
	opEdit   = "edit"
	opToggle = "toggle"
)

var failureMessages = map[string]string{
	opLoad:   "error loading todos",
	opAdd:    "error adding todo",
	opDelete: "error deleting todo",
	opEdit:   "error editing todo",
	opToggle: "error toggling todo",
}

// Controller keeps the store, the rendered list, and the cache snapshot
// consistent. It is not safe for concurrent use; callers serialize the
// events of one session.
type Controller struct {
	store    types.Store
	mirror   *session.Mirror
	list     view.List
	input    string
	query    string
	prompter prompt.Prompter
	logger   *log.Logger
	metrics  *metrics.Metrics
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for operation diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithPrompter sets how EditText asks for replacement text.
func WithPrompter(p prompt.Prompter) Option {
	return func(c *Controller) { c.prompter = p }
}

// WithMetrics records operation outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New returns a controller over store that mirrors into mirror.
// Without WithPrompter every edit is cancelled.
func New(store types.Store, mirror *session.Mirror, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		mirror:   mirror,
		prompter: prompt.Cancel,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load discards the rendered list and the cache, fetches every record,
// renders them in store order and writes one snapshot. On failure the list
// stays empty.
func (c *Controller) Load(ctx context.Context) error {
	c.list.Clear()
	c.query = ""
	if err := c.mirror.Clear(); err != nil {
		c.logger.Warn("error clearing todo cache", "err", err)
	}

	todos, err := c.store.List(ctx)
	if err != nil {
		return c.fail(opLoad, "", types.ErrLoadFailure, err)
	}

	for _, t := range todos {
		c.list.Append(t)
	}
	c.snapshot()
	c.metrics.Observe(opLoad, metrics.ResultOK)
	c.logger.Info("todos loaded and cached", "count", len(todos))
	return nil
}

// Add creates a record for the trimmed text. Blank text is a no-op. On
// success the input field is cleared; on failure nothing changes.
func (c *Controller) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		c.metrics.Observe(opAdd, metrics.ResultNoop)
		return nil
	}

	id, err := c.store.Create(ctx, types.Document{Text: text, Completed: false})
	if err != nil {
		return c.fail(opAdd, "", types.ErrWriteFailure, err)
	}

	c.list.Append(types.Todo{ID: id, Text: text, Completed: false})
	c.snapshot()
	c.input = ""
	c.metrics.Observe(opAdd, metrics.ResultOK)
	c.logger.Debug("todo added", "id", id)
	return nil
}

// Delete removes the record with id from the store, then from the list.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return c.fail(opDelete, id, types.ErrWriteFailure, err)
	}

	c.list.Remove(id)
	c.snapshot()
	c.metrics.Observe(opDelete, metrics.ResultOK)
	c.logger.Debug("todo deleted", "id", id)
	return nil
}

// EditText asks the configured prompter for replacement text seeded with
// the current text. Cancelling or answering blank is a no-op.
func (c *Controller) EditText(ctx context.Context, id string) error {
	return c.editText(ctx, id, c.prompter)
}

func (c *Controller) editText(ctx context.Context, id string, p prompt.Prompter) error {
	item, ok := c.list.Get(id)
	if !ok {
		return fmt.Errorf("edit %s: %w", id, types.ErrNotFound)
	}

	answer, ok, err := p.Prompt(EditPrompt, item.Text)
	if err != nil {
		c.logger.Error("error prompting for todo text", "id", id, "err", err)
		return fmt.Errorf("edit %s: %w", id, err)
	}
	text := strings.TrimSpace(answer)
	if !ok || text == "" {
		c.metrics.Observe(opEdit, metrics.ResultNoop)
		return nil
	}

	if err := c.store.Update(ctx, id, types.TextPatch(text)); err != nil {
		return c.fail(opEdit, id, types.ErrWriteFailure, err)
	}

	c.list.SetText(id, text)
	c.snapshot()
	c.metrics.Observe(opEdit, metrics.ResultOK)
	c.logger.Debug("todo edited", "id", id)
	return nil
}

// ToggleCompletion stores the opposite of the item's completed state and
// then applies it to the list.
func (c *Controller) ToggleCompletion(ctx context.Context, id string) error {
	item, ok := c.list.Get(id)
	if !ok {
		return fmt.Errorf("toggle %s: %w", id, types.ErrNotFound)
	}

	completed := !item.Completed
	if err := c.store.Update(ctx, id, types.CompletedPatch(completed)); err != nil {
		return c.fail(opToggle, id, types.ErrWriteFailure, err)
	}

	c.list.SetCompleted(id, completed)
	c.snapshot()
	c.metrics.Observe(opToggle, metrics.ResultOK)
	c.logger.Debug("todo toggled", "id", id, "completed", completed)
	return nil
}

// Dispatch routes a tagged action to its operation. For edits, a non-empty
// Text is an answer the UI already collected and replaces the prompter.
func (c *Controller) Dispatch(ctx context.Context, a types.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	switch a.Kind {
	case types.ActionAdd:
		c.input = a.Text
		return c.Add(ctx, a.Text)
	case types.ActionDelete:
		return c.Delete(ctx, a.ID)
	case types.ActionEdit:
		p := c.prompter
		if a.Text != "" {
			p = prompt.Fixed(a.Text)
		}
		return c.editText(ctx, a.ID, p)
	case types.ActionToggle:
		return c.ToggleCompletion(ctx, a.ID)
	default:
		return fmt.Errorf("%w: %q", types.ErrUnknownAction, a.Kind)
	}
}

// Search filters the rendered list by query and returns the visible count.
// The store and the cache are not touched.
func (c *Controller) Search(query string) int {
	c.query = query
	return search.Filter(&c.list, query)
}

// SetInput records the current contents of the input field.
func (c *Controller) SetInput(text string) {
	c.input = text
}

// Input returns the current contents of the input field.
func (c *Controller) Input() string {
	return c.input
}

// Query returns the last search query.
func (c *Controller) Query() string {
	return c.query
}

// Visible returns how many rendered items the search filter shows.
func (c *Controller) Visible() int {
	return c.list.Visible()
}

// Items returns a copy of the rendered list.
func (c *Controller) Items() []view.Item {
	return c.list.Items()
}

// Records returns the task records currently rendered.
func (c *Controller) Records() []types.Todo {
	return c.list.Records()
}

// snapshot rewrites the cache from the rendered list. A cache write failure
// is logged; the store and the list already agree.
func (c *Controller) snapshot() {
	records := c.list.Records()
	if err := c.mirror.Snapshot(records); err != nil {
		c.logger.Error("error caching todos", "err", err)
		return
	}
	c.metrics.SetItems(len(records))
}

// fail logs a failed store call and returns it wrapped with its kind.
func (c *Controller) fail(op, id string, kind, err error) error {
	c.metrics.Observe(op, metrics.ResultError)
	if id != "" {
		c.logger.Error(failureMessages[op], "id", id, "err", err)
		return fmt.Errorf("%s %s: %w: %w", op, id, kind, err)
	}
	c.logger.Error(failureMessages[op], "err", err)
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
