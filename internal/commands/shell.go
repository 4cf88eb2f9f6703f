package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"tasksync/internal/cache"
	"tasksync/internal/config"
	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
)

func init() {
	Register(&ShellCmd{})
}

// shellVerbs maps accepted words to the verbs buildIntent knows.
var shellVerbs = map[string]string{
	"add": "add", "create": "add",
	"rm": "rm", "delete": "rm",
	"toggle": "toggle", "done": "toggle",
	"rename": "rename", "edit": "rename",
	"move": "move", "mv": "move",
}

// ShellCmd runs a long-lived session: one cache, many commands read from
// stdin, the board redrawn whenever the cache changes.
type ShellCmd struct {
	table bool
}

func (c *ShellCmd) Name() string      { return "shell" }
func (c *ShellCmd) Aliases() []string { return nil }
func (c *ShellCmd) Synopsis() string  { return "Interactive session" }
func (c *ShellCmd) Usage() string     { return "tasksync shell [--table]" }
func (c *ShellCmd) NeedsRemote() bool { return true }

func (c *ShellCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.table, "table", false, "")
}

func (c *ShellCmd) Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int {
	eng := sess.Engine
	in := sess.In
	if in == nil {
		in = os.Stdin
	}

	// Subscribers run on the goroutine that mutates the cache, which is
	// this one, so filter and dirty need no lock.
	filter := cache.FilterAll
	dirty := false
	unsubscribe := eng.Cache().Subscribe(func(ev cache.Event) {
		if ev.Kind == cache.EventReset {
			filter = ev.Filter
		}
		dirty = true
	})
	defer unsubscribe()

	render := func() {
		if !dirty {
			return
		}
		dirty = false
		b := output.BoardFrom(eng.Cache(), filter)
		switch {
		case b.Empty():
			fmt.Fprintln(out, output.NoTasks)
		case c.table:
			output.FormatTable(out, b)
		default:
			output.FormatBoard(out, b)
		}
	}
	prompt := func() {}
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		prompt = func() { fmt.Fprint(out, "> ") }
	}

	if err := eng.Dispatch(ctx, engine.Refresh{Filter: cache.FilterAll}); err != nil {
		return report(errOut, err)
	}
	render()

	code := exitcode.Success
	sc := bufio.NewScanner(in)
	for prompt(); sc.Scan(); prompt() {
		if ctx.Err() != nil {
			break
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		verb, rest := fields[0], fields[1:]

		var err error
		switch verb {
		case "quit", "exit", "q":
			return code
		case "help", "?":
			fmt.Fprint(out, shellHelp)
			continue
		case "list", "ls", "refresh":
			err = c.refresh(ctx, eng, filter, rest)
		default:
			v, ok := shellVerbs[verb]
			if !ok {
				err = usageError("unknown command: " + verb)
				break
			}
			var intent engine.Intent
			if intent, err = buildIntent(v, rest, eng.Cache()); err == nil {
				err = eng.Dispatch(ctx, intent)
			}
		}

		code = exitcode.Success
		if err != nil {
			code = report(errOut, err)
		}
		render()
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(errOut, "error: read input: %v\n", err)
		return exitcode.UserError
	}
	return code
}

// refresh reloads the board, switching filter when one is named.
func (c *ShellCmd) refresh(ctx context.Context, eng *engine.Engine, current cache.Filter, args []string) error {
	f := current
	if len(args) > 0 {
		var err error
		if f, err = cache.ParseFilter(args[0]); err != nil {
			return usageError(err.Error())
		}
	}
	return eng.Dispatch(ctx, engine.Refresh{Filter: f})
}

const shellHelp = `Commands:
  list [all|todo|done]      Reload and show the board
  add <title...>            Create a task
  rm <ref>                  Delete a task
  toggle <ref>              Mark done, or reopen
  rename <ref> <title...>   Change a title
  move <ref> <to>           Move within the partition (1-based)
  help                      Show this text
  quit                      Leave the shell

References: 3 or t3 (third todo task), d2 (second done task).
`
