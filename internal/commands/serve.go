package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/server"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd runs the reference remote store.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Run the task store HTTP server" }
func (c *ServeCmd) Usage() string     { return "tasksync serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsRemote() bool { return false }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	if len(cfg.Server.Users) == 0 {
		fmt.Fprintf(errOut, "error: no [[server.users]] configured in %s\n", cfg.ConfigPath())
		return exitcode.AuthError
	}

	store, err := server.Open(cfg.DatabasePath())
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		if errors.Is(err, server.ErrLocked) {
			return exitcode.UserError
		}
		return exitcode.BackendError
	}
	defer store.Close()

	h, err := server.NewHandler(store, server.Options{
		Tokens:         cfg.Server.Tokens(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         sess.Log,
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	addr := c.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "serving %s on %s\n", cfg.DatabasePath(), addr)
	}
	if err := server.Serve(ctx, addr, h, sess.Log); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
