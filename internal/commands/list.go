package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/cache"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command. It is also what `tasksync` runs
// without arguments.
type ListCmd struct {
	filter string
	table  bool
}

// SetFilter sets the filter name (for testing).
func (c *ListCmd) SetFilter(filter string) {
	c.filter = filter
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "tasksync list [--filter all|todo|done] [--table]" }
func (c *ListCmd) NeedsRemote() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.StringVar(&c.filter, "f", "all", "")
	fs.BoolVar(&c.table, "table", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	filter := c.filter
	if len(args) > 0 {
		filter = args[0]
	}
	f, err := cache.ParseFilter(filter)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := sess.Engine.Load(ctx, f); err != nil {
		return report(errOut, err)
	}

	b := output.BoardFrom(sess.Engine.Cache(), f)
	if b.Empty() {
		if !cfg.Quiet {
			fmt.Fprintln(out, output.NoTasks)
		}
		return exitcode.Success
	}
	if c.table {
		output.FormatTable(out, b)
	} else {
		output.FormatBoard(out, b)
	}
	return exitcode.Success
}
