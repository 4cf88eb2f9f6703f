package commands

import (
	"context"
	"flag"
	"io"

	"tasksync/internal/config"
)

func init() {
	Register(&RenameCmd{})
}

// RenameCmd implements the rename command.
type RenameCmd struct{}

func (c *RenameCmd) Name() string      { return "rename" }
func (c *RenameCmd) Aliases() []string { return []string{"edit"} }
func (c *RenameCmd) Synopsis() string  { return "Change a task's title" }
func (c *RenameCmd) Usage() string     { return "tasksync rename <ref> <title...>" }
func (c *RenameCmd) NeedsRemote() bool { return true }

func (c *RenameCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RenameCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	return runIntent(ctx, cfg, sess, "rename", args, out, errOut)
}
