package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todos/internal/prompt"
	"github.com/mesh-intelligence/todos/internal/todo"
	"github.com/mesh-intelligence/todos/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Load and print the list",
		Long: `List loads every task from the store, refreshes the session cache and
prints the tasks in store order. --query shows only tasks whose text
contains the query, ignoring case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withList(cmd, func(c *todo.Controller) error {
				c.Search(query)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive substring filter")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a task",
		Long:  "Add creates a task from the arguments joined by spaces. Blank text adds nothing.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return a.withList(cmd, func(c *todo.Controller) error {
				return c.Dispatch(cmd.Context(), types.Add(text))
			})
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var (
		text       string
		accessible bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a task's text",
		Long: `Edit replaces the text of the task with the given id. Without --text it
prompts for the new text, seeded with the current text. Cancelling the
prompt or answering blank leaves the task unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if cmd.Flags().Changed("text") {
				return a.withList(cmd, func(c *todo.Controller) error {
					if strings.TrimSpace(text) == "" {
						return nil
					}
					return c.Dispatch(cmd.Context(), types.Edit(id, text))
				})
			}
			return a.withList(cmd, func(c *todo.Controller) error {
				return c.EditText(cmd.Context(), id)
			}, todo.WithPrompter(prompt.Terminal{Accessible: accessible}))
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "new text (skips the prompt)")
	cmd.Flags().BoolVar(&accessible, "accessible", false, "use a plain line prompt")
	return cmd
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withList(cmd, func(c *todo.Controller) error {
				return c.Dispatch(cmd.Context(), types.Toggle(args[0]))
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withList(cmd, func(c *todo.Controller) error {
				return c.Dispatch(cmd.Context(), types.Delete(args[0]))
			})
		},
	}
}

func newCacheCmd(a *app) *cobra.Command {
	var clearSession bool
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Print the cached list snapshot",
		Long: `Cache prints the list snapshot stored in the CLI session by the last
command, without contacting the store. --clear ends the session and
deletes its storage file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearSession {
				storage, err := a.sessionFile()
				if err != nil {
					return err
				}
				return storage.Destroy()
			}

			mirror, err := a.sessionMirror()
			if err != nil {
				return err
			}
			todos, ok, err := mirror.Read()
			if err != nil {
				return err
			}
			if !ok {
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), []types.Todo{})
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "No cached list under %q.\n", mirror.Key())
				return err
			}
			return writeJSON(cmd.OutOrStdout(), todos)
		},
	}
	cmd.Flags().BoolVar(&clearSession, "clear", false, "delete the CLI session storage")
	return cmd
}
