// Package cli parses the command line and runs the selected command.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"tasksync/internal/cache"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/logging"
	"tasksync/internal/service"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.Service, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
	in       io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
		in:       os.Stdin,
	}
}

// SetInput replaces stdin for interactive commands (for testing).
func (d *Dispatcher) SetInput(r io.Reader) {
	d.in = r
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		args = []string{"list"}
	}

	cmdName := args[0]

	// Flags require a command
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // errors are reported below

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	log, closeLog, err := logging.New(logging.Options{
		Level:      level,
		Format:     cfg.Log.Format,
		Writer:     errOut,
		FluentHost: cfg.Log.FluentHost,
		FluentPort: cfg.Log.FluentPort,
		FluentTag:  cfg.Log.FluentTag,
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: logging: %s\n", err)
		return exitcode.AuthError
	}
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(errOut, "error: flush logs: %v\n", err)
		}
	}()
	log = log.With("cmd", cmd.Name())

	sess := &commands.Session{Log: log, In: d.in}
	if cmd.NeedsRemote() {
		eng, code := d.engine(ctx, cfg, log, errOut)
		if eng == nil {
			return code
		}
		sess.Engine = eng
	}

	log.Debug("dispatch", "args", positionalArgs, "config", cfg.Dir, "backend", cfg.Backend)
	return cmd.Run(ctx, cfg, sess, positionalArgs, out, errOut)
}

// engine builds the backend and the engine mirroring it. A missing
// credential is reported before any remote call.
func (d *Dispatcher) engine(ctx context.Context, cfg *config.Config, log *slog.Logger, errOut io.Writer) (*engine.Engine, int) {
	if d.factory == nil {
		fmt.Fprintln(errOut, "error: no backend configured")
		return nil, exitcode.AuthError
	}
	placement, err := engine.ParsePlacement(cfg.Placement)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, exitcode.AuthError
	}

	svc, err := d.factory(ctx, cfg, log)
	if err != nil {
		if errors.Is(err, service.ErrNoCredentials) || errors.Is(err, service.ErrUnauthorized) {
			fmt.Fprintf(errOut, "error: auth error: %s\n", err)
			return nil, exitcode.AuthError
		}
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return nil, exitcode.BackendError
	}

	return engine.New(svc, cache.New(), engine.WithLogger(log), engine.WithPlacement(placement)), exitcode.Success
}

// flagError rewrites the flag package's message for undefined flags.
func flagError(err error) string {
	msg := err.Error()
	if name, ok := strings.CutPrefix(msg, "flag provided but not defined: "); ok {
		return "unknown flag: " + name
	}
	return msg
}
