package commands

import (
	"context"
	"flag"
	"io"

	"tasksync/internal/config"
)

func init() {
	Register(&ToggleCmd{})
}

// ToggleCmd flips a task between todo and done.
type ToggleCmd struct{}

func (c *ToggleCmd) Name() string      { return "toggle" }
func (c *ToggleCmd) Aliases() []string { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string  { return "Mark a task done, or reopen it" }
func (c *ToggleCmd) Usage() string     { return "tasksync toggle <ref>" }
func (c *ToggleCmd) NeedsRemote() bool { return true }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ToggleCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	return runIntent(ctx, cfg, sess, "toggle", args, out, errOut)
}
