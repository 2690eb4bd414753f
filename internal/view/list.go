// Package view holds the rendered state of the todo list and renders it as
// HTML for the browser or as styled text for the terminal.
package view

import "github.com/mesh-intelligence/todos/pkg/types"

// Item is the view model of one rendered task record. Styling derives from
// Completed; Hidden is owned by the search filter.
type Item struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Hidden    bool   `json:"hidden"`
}

// FromTodo builds a visible Item from a task record.
func FromTodo(t types.Todo) Item {
	return Item{ID: t.ID, Text: t.Text, Completed: t.Completed}
}

// Todo returns the task record the item renders.
func (it Item) Todo() types.Todo {
	return types.Todo{ID: it.ID, Text: it.Text, Completed: it.Completed}
}

// List is the ordered set of rendered items. The zero value is an empty list.
type List struct {
	items []Item
}

// Append renders t at the end of the list.
func (l *List) Append(t types.Todo) {
	l.items = append(l.items, FromTodo(t))
}

// Remove drops the item with id and reports whether one was found.
func (l *List) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

// Get returns the item with id.
func (l *List) Get(id string) (Item, bool) {
	i := l.index(id)
	if i < 0 {
		return Item{}, false
	}
	return l.items[i], true
}

// SetText replaces the text of the item with id.
func (l *List) SetText(id, text string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items[i].Text = text
	return true
}

// SetCompleted sets the completion flag of the item with id.
func (l *List) SetCompleted(id string, completed bool) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items[i].Completed = completed
	return true
}

// Filter sets every item's visibility to keep(item) and returns how many
// items are visible afterwards.
func (l *List) Filter(keep func(Item) bool) int {
	visible := 0
	for i := range l.items {
		l.items[i].Hidden = !keep(l.items[i])
		if !l.items[i].Hidden {
			visible++
		}
	}
	return visible
}

// Clear removes every item.
func (l *List) Clear() {
	l.items = nil
}

// Len returns the number of rendered items, hidden ones included.
func (l *List) Len() int {
	return len(l.items)
}

// Visible returns the number of items not hidden by the search filter.
func (l *List) Visible() int {
	n := 0
	for _, it := range l.items {
		if !it.Hidden {
			n++
		}
	}
	return n
}

// Items returns a copy of the rendered items in order.
func (l *List) Items() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Records returns the task records of every rendered item, hidden ones
// included, in order. This is the source of every cache snapshot.
func (l *List) Records() []types.Todo {
	out := make([]types.Todo, 0, len(l.items))
	for _, it := range l.items {
		out = append(out, it.Todo())
	}
	return out
}

func (l *List) index(id string) int {
	for i, it := range l.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
