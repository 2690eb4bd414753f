// Package search filters the rendered todo list by a case-insensitive
// substring query. It never touches the store or the session cache.
package search

import (
	"strings"

	"github.com/mesh-intelligence/todos/internal/view"
)

// Matches reports whether text contains query, ignoring case.
// An empty query matches everything.
func Matches(text, query string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(query))
}

// Filter recomputes every item's visibility against query from scratch and
// returns the number of visible items.
func Filter(list *view.List, query string) int {
	return list.Filter(func(it view.Item) bool {
		return Matches(it.Text, query)
	})
}
