package commands

import (
	"context"
	"flag"
	"io"

	"tasksync/internal/config"
)

func init() {
	Register(&MoveCmd{})
}

// MoveCmd moves a task within its partition. The target is 1-based.
type MoveCmd struct{}

func (c *MoveCmd) Name() string      { return "move" }
func (c *MoveCmd) Aliases() []string { return []string{"mv"} }
func (c *MoveCmd) Synopsis() string  { return "Move a task to another position" }
func (c *MoveCmd) Usage() string     { return "tasksync move <ref> <to>" }
func (c *MoveCmd) NeedsRemote() bool { return true }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MoveCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	return runIntent(ctx, cfg, sess, "move", args, out, errOut)
}
