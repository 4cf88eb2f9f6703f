package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasksync help" }
func (c *HelpCmd) NeedsRemote() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasksync                                        List all tasks
  tasksync list [common flags] [--filter all|todo|done] [--table]
  tasksync add [common flags] <title...>
  tasksync create [common flags] <title...>
  tasksync rm [common flags] <ref>
  tasksync toggle [common flags] <ref>
  tasksync rename [common flags] <ref> <title...>
  tasksync move [common flags] <ref> <to>
  tasksync shell [common flags] [--table]
  tasksync serve [common flags] [--addr <host:port>]
  tasksync login [common flags]
  tasksync logout [common flags]
  tasksync help
  tasksync version

References:
  3, t3, t 3       third todo task
  d2, d 2          second done task

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Exit codes:
  0 ok, 1 usage error, 2 auth or config error, 3 backend error,
  4 local state was reloaded from the store
`
