package cli_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"tasksync/internal/cli"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
	"tasksync/internal/testutil"
)

// testFactory creates a service factory that returns the given FakeService.
func testFactory(svc *testutil.FakeService) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.Service, error) {
		return svc, nil
	}
}

// run dispatches args with an isolated config directory.
func run(t *testing.T, d *cli.Dispatcher, dir string, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	if len(args) > 0 {
		args = append([]string{args[0], "--config", dir}, args[1:]...)
	}
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"unknowncmd"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"--quiet"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_HelpAndVersion(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)
	dir := t.TempDir()

	stdout, stderr, code := run(t, dispatcher, dir, "help")
	if code != exitcode.Success || stderr != "" || !strings.Contains(stdout, "Usage:") {
		t.Errorf("help: code %d, stdout %q, stderr %q", code, stdout, stderr)
	}

	stdout, _, code = run(t, dispatcher, dir, "version")
	if code != exitcode.Success || stdout != "tasksync 0.1.0\n" {
		t.Errorf("version: code %d, stdout %q", code, stdout)
	}
}

func TestDispatcher_FlagErrors(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"help", "--unknown"}, "error: unknown flag: -unknown\n"},
		{[]string{"list", "--filter"}, "error: flag needs an argument: -filter\n"},
		{[]string{"serve", "--", "-x"}, "error: unknown flag: -x\n"},
	}
	for _, tt := range tests {
		var stdout, stderr bytes.Buffer
		code := dispatcher.Run(context.Background(), tt.args, &stdout, &stderr)
		if code != exitcode.UserError {
			t.Errorf("%q: expected exit code %d, got %d", tt.args, exitcode.UserError, code)
		}
		if stderr.String() != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.args, tt.want, stderr.String())
		}
	}
}

func TestDispatcher_NoArgsLists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Alpha", service.StatusTodo)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), nil, &stdout, &stderr)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "t1  Alpha") {
		t.Errorf("expected board, got %q", stdout.String())
	}
}

func TestDispatcher_AddThenList(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))
	dir := t.TempDir()

	if _, stderr, code := run(t, dispatcher, dir, "add", "--quiet", "Write", "tests"); code != exitcode.Success {
		t.Fatalf("add: code %d, stderr %q", code, stderr)
	}
	stdout, _, code := run(t, dispatcher, dir, "ls", "--table")
	if code != exitcode.Success || !strings.Contains(stdout, "Write tests") || !strings.Contains(stdout, "╭") {
		t.Errorf("list: code %d, stdout %q", code, stdout)
	}
}

func TestDispatcher_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(`backend = "ftp"`), 0600); err != nil {
		t.Fatal(err)
	}
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	_, stderr, code := run(t, dispatcher, dir, "list")
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: invalid config") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if len(svc.Calls()) != 0 {
		t.Errorf("remote calls issued: %v", svc.CallOps())
	}
}

func TestDispatcher_MissingCredentials(t *testing.T) {
	called := false
	factory := func(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.Service, error) {
		called = true
		return nil, fmt.Errorf("%w: remote token is empty", service.ErrNoCredentials)
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	_, stderr, code := run(t, dispatcher, t.TempDir(), "add", "x")
	if !called {
		t.Fatal("factory not called")
	}
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: auth error: no credentials") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_LocalCommandsSkipFactory(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.Service, error) {
		t.Error("factory called for a local command")
		return nil, nil
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	if _, _, code := run(t, dispatcher, t.TempDir(), "logout", "--quiet"); code != exitcode.Success {
		t.Errorf("logout: code %d", code)
	}
}

func TestDispatcher_Debug(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(t, dispatcher, t.TempDir(), "list", "--debug", "--quiet")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	for _, want := range []string{"dispatch", "cmd=list", "resync complete"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("debug log missing %q:\n%s", want, stderr)
		}
	}
}

func TestDispatcher_RepositionPlacement(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(`placement = "reposition"`), 0600); err != nil {
		t.Fatal(err)
	}
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Alpha", service.StatusTodo)
	svc.AddTask("x", "Done", service.StatusDone)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	if _, stderr, code := run(t, dispatcher, dir, "toggle", "t1"); code != exitcode.Success {
		t.Fatalf("toggle: code %d, stderr %q", code, stderr)
	}
	if !slices.Contains(svc.CallOps(), "reposition") {
		t.Errorf("calls = %v, want a reposition after the patch", svc.CallOps())
	}
	if got := svc.Order(service.StatusDone); !slices.Equal(got, []string{"a", "x"}) {
		t.Errorf("done order = %v, want [a x]", got)
	}
}

func TestDispatcher_Shell(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))
	dispatcher.SetInput(strings.NewReader("add one\nadd two\nmove 2 1\n"))

	stdout, stderr, code := run(t, dispatcher, t.TempDir(), "shell")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.HasSuffix(stdout, "   t1  two\n   t2  one\n------------\nDone (0)\n------------\n") {
		t.Errorf("unexpected final board:\n%s", stdout)
	}
	if got := svc.Order(service.StatusTodo); len(got) != 2 {
		t.Errorf("todo order = %v", got)
	}
}
