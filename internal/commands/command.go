// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"
	"log/slog"

	"tasksync/internal/config"
	"tasksync/internal/engine"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsRemote returns true if the command talks to the remote store.
	// help, version, login, logout and serve return false.
	NeedsRemote() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths).
	// sess.Engine is nil if NeedsRemote() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int
}

// Session carries what a command needs beyond its arguments.
type Session struct {
	// Engine mirrors the remote store. Nil for commands that don't need it.
	Engine *engine.Engine

	Log *slog.Logger

	// In is read by interactive commands.
	In io.Reader
}
