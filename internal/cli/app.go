package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todos/internal/logging"
	"github.com/mesh-intelligence/todos/internal/paths"
	"github.com/mesh-intelligence/todos/internal/session"
	"github.com/mesh-intelligence/todos/internal/todo"
	"github.com/mesh-intelligence/todos/internal/view"
	"github.com/mesh-intelligence/todos/pkg/sqlite"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// app carries the global flags and the settings resolved from them.
type app struct {
	flags rootFlags
	cfg   settings
}

// loadSettings resolves the config directory, reads config.yaml and applies
// the flags.
func (a *app) loadSettings() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError("%w", err)
	}
	s, err := resolveSettings(v, configDir, a.flags)
	if err != nil {
		return sysError("%w", err)
	}
	a.cfg = s
	return nil
}

// newLogger builds the configured logger writing to the command's stderr.
func (a *app) newLogger(cmd *cobra.Command) (*log.Logger, io.Closer, error) {
	opts := a.cfg.log
	opts.Output = cmd.ErrOrStderr()
	logger, closer, err := logging.New(opts)
	if err != nil {
		return nil, nil, sysError("configure logging: %w", err)
	}
	return logger, closer, nil
}

// attachBackend creates and attaches the configured store. The caller must
// Detach it.
func (a *app) attachBackend() (types.Backend, error) {
	backend := sqlite.NewBackend()
	if err := backend.Attach(a.cfg.store); err != nil {
		return nil, sysError("attach backend: %w", err)
	}
	return backend, nil
}

// sessionFile opens the CLI's file-backed session storage.
func (a *app) sessionFile() (*session.File, error) {
	storage, err := session.NewFile(paths.SessionsDir(a.cfg.dataDir), a.cfg.sessionID)
	if err != nil {
		return nil, sysError("open session storage: %w", err)
	}
	return storage, nil
}

// sessionMirror returns the cache mirror over the CLI session storage.
func (a *app) sessionMirror() (*session.Mirror, error) {
	storage, err := a.sessionFile()
	if err != nil {
		return nil, err
	}
	return session.NewMirror(storage, a.cfg.cacheKey), nil
}

// listEnv is an attached store with a controller that has already loaded
// the list.
type listEnv struct {
	ctrl    *todo.Controller
	backend types.Backend
	logs    io.Closer
}

// Close detaches the store and flushes the log output.
func (e *listEnv) Close() error {
	return errors.Join(e.backend.Detach(), e.logs.Close())
}

// openList wires store, session mirror and controller, then runs Load the
// way the page does on startup.
func (a *app) openList(cmd *cobra.Command, opts ...todo.Option) (*listEnv, error) {
	logger, logs, err := a.newLogger(cmd)
	if err != nil {
		return nil, err
	}
	mirror, err := a.sessionMirror()
	if err != nil {
		logs.Close()
		return nil, err
	}
	backend, err := a.attachBackend()
	if err != nil {
		logs.Close()
		return nil, err
	}

	opts = append([]todo.Option{todo.WithLogger(logger)}, opts...)
	env := &listEnv{
		ctrl:    todo.New(backend, mirror, opts...),
		backend: backend,
		logs:    logs,
	}
	if err := env.ctrl.Load(cmd.Context()); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// withList runs fn against a loaded list, then prints the list.
func (a *app) withList(cmd *cobra.Command, fn func(*todo.Controller) error, opts ...todo.Option) error {
	env, err := a.openList(cmd, opts...)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := fn(env.ctrl); err != nil {
		return err
	}
	return a.printList(cmd.OutOrStdout(), env.ctrl.Items())
}

// printList writes the visible items as styled lines, or as a JSON array of
// records with --json.
func (a *app) printList(w io.Writer, items []view.Item) error {
	if a.flags.jsonMode {
		visible := make([]types.Todo, 0, len(items))
		for _, it := range items {
			if !it.Hidden {
				visible = append(visible, it.Todo())
			}
		}
		return writeJSON(w, visible)
	}

	out := view.NewTerminalRenderer().RenderList(items)
	if out == "" {
		out = "No todos.\n"
	}
	_, err := fmt.Fprint(w, out)
	return err
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
