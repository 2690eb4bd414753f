// Package cli implements the todos command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// sysError marks err as an environment failure (config, storage setup).
func sysError(format string, args ...any) error {
	return &exitError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// NewRootCmd creates the top-level "todos" command with global flags and all
// subcommands registered. Each call returns an independent command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "todos",
		Short: "A to-do list backed by a document store",
		Long: "Todos keeps a list of tasks in a document collection and mirrors the\n" +
			"current list into session storage. Use the subcommands to edit the list\n" +
			"from the terminal, or serve it to a browser.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "init" {
				return nil
			}
			return a.loadSettings()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.todos-db)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newServeCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newToggleCmd(a),
		newDeleteCmd(a),
		newCacheCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(NewRootCmd()))
}

// run executes root and maps its error to an exit code.
func run(root *cobra.Command) int {
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
