// Package prompt asks the user for replacement text during an edit.
package prompt

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// Prompter asks for a line of text seeded with a default. ok is false when
// the user cancelled.
type Prompter interface {
	Prompt(message, seed string) (answer string, ok bool, err error)
}

// Func adapts a function to Prompter.
type Func func(message, seed string) (string, bool, error)

// Prompt implements Prompter.
func (f Func) Prompt(message, seed string) (string, bool, error) {
	return f(message, seed)
}

// Fixed returns a Prompter that always answers with answer. UI layers that
// collect the answer themselves hand it to the controller this way.
func Fixed(answer string) Prompter {
	return Func(func(string, string) (string, bool, error) {
		return answer, true, nil
	})
}

// Cancel is a Prompter that always cancels.
var Cancel Prompter = Func(func(string, string) (string, bool, error) {
	return "", false, nil
})

// Terminal prompts on the controlling terminal.
type Terminal struct {
	// Accessible switches to a plain line prompt for screen readers and
	// non-interactive terminals.
	Accessible bool
}

// Prompt implements Prompter.
func (t Terminal) Prompt(message, seed string) (string, bool, error) {
	value := seed
	err := huh.NewInput().
		Title(message).
		Value(&value).
		WithAccessible(t.Accessible).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
