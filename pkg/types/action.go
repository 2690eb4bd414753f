package types

import (
	"errors"
	"fmt"
)

// ActionKind tags an Action.
type ActionKind string

// Action kinds understood by the list controller.
const (
	ActionAdd    ActionKind = "add"
	ActionDelete ActionKind = "delete"
	ActionEdit   ActionKind = "edit"
	ActionToggle ActionKind = "toggle"
)

// ErrUnknownAction is returned when an Action carries an unrecognized kind.
var ErrUnknownAction = errors.New("unknown action")

// Action is a user intent produced by a UI layer and consumed by the list
// controller's Dispatch.
//
// Add uses Text as the raw input. Delete and Toggle use ID. Edit uses ID;
// a non-empty Text is the answer the UI already collected from the user.
type Action struct {
	Kind ActionKind `json:"type"`
	ID   string     `json:"id,omitempty"`
	Text string     `json:"text,omitempty"`
}

// Add returns an add action for the given input text.
func Add(text string) Action { return Action{Kind: ActionAdd, Text: text} }

// Delete returns a delete action for id.
func Delete(id string) Action { return Action{Kind: ActionDelete, ID: id} }

// Edit returns an edit action for id with an optional pre-collected answer.
func Edit(id, text string) Action { return Action{Kind: ActionEdit, ID: id, Text: text} }

// Toggle returns a completion toggle action for id.
func Toggle(id string) Action { return Action{Kind: ActionToggle, ID: id} }

// ParseActionKind maps a wire name onto an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(s); k {
	case ActionAdd, ActionDelete, ActionEdit, ActionToggle:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Validate checks that the action carries the fields its kind needs.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionAdd:
		return nil
	case ActionDelete, ActionEdit, ActionToggle:
		if a.ID == "" {
			return ErrInvalidID
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}
