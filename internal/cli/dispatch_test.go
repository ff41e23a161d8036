package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todolist/internal/cli"
	"todolist/internal/commands"
	"todolist/internal/config"
	"todolist/internal/exitcode"
	"todolist/internal/gateway"
	"todolist/internal/testutil"
)

// testFactory creates a gateway factory that returns the given FakeGateway.
func testFactory(gw *testutil.FakeGateway) cli.GatewayFactory {
	return func(ctx context.Context, cfg *config.Config) (gateway.Gateway, error) {
		return gw, nil
	}
}

// run dispatches args with an isolated config directory.
func run(t *testing.T, factory cli.GatewayFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	for _, k := range []string{config.EnvBackend, config.EnvBaseURL, config.EnvLogLevel} {
		t.Setenv(k, "")
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	var outBuf, errBuf bytes.Buffer
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		args = append([]string{args[0], "--config", t.TempDir()}, args[1:]...)
	}
	code = dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeGateway()), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeGateway()), "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := run(t, testFactory(testutil.NewFakeGateway()), "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	stdout, stderr, code := run(t, testFactory(testutil.NewFakeGateway()), "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "todolist 0.1.0\n" {
		t.Errorf("expected 'todolist 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeGateway()), "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_MissingFlagValue(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeGateway()), "list", "--format")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -format\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_ListUsesGateway(t *testing.T) {
	gw := testutil.NewFakeGateway(
		gateway.Task{ID: "1", Title: "A"},
		gateway.Task{ID: "2", Title: "B"},
	)
	stdout, stderr, code := run(t, testFactory(gw), "list")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "   1  A\n   2  B\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestDispatcher_FactoryAuthError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config) (gateway.Gateway, error) {
		return nil, errors.Join(cli.ErrAuth, errors.New("token revoked"))
	}
	_, stderr, code := run(t, factory, "list")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: auth error") {
		t.Errorf("expected auth error, got %q", stderr)
	}
}

func TestDispatcher_FactoryBackendError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config) (gateway.Gateway, error) {
		return nil, errors.New("dial failed")
	}
	_, stderr, code := run(t, factory, "add", "x")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: dial failed\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_NoGatewayForHelp(t *testing.T) {
	called := false
	factory := func(ctx context.Context, cfg *config.Config) (gateway.Gateway, error) {
		called = true
		return nil, errors.New("should not be called")
	}
	_, _, code := run(t, factory, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if called {
		t.Error("help should not build a gateway")
	}
}

func writeBadConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(`backend = "fax"`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvBackend, "")
	return dir
}

func TestDispatcher_BadConfigFile(t *testing.T) {
	dir := writeBadConfig(t)
	gw := testutil.NewFakeGateway()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(gw))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"list", "--config", dir}, &stdout, &stderr)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(stderr.String(), "error: config error: unknown backend: fax") {
		t.Errorf("expected backend error, got %q", stderr.String())
	}
	if gw.Calls(gateway.OpList) != 0 {
		t.Error("expected no list request")
	}
}

func TestDispatcher_BadConfigFileStillRunsLocalCommands(t *testing.T) {
	dir := writeBadConfig(t)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeGateway()))

	for _, name := range []string{"version", "help", "logout"} {
		var stdout, stderr bytes.Buffer
		code := dispatcher.Run(context.Background(), []string{name, "--config", dir}, &stdout, &stderr)

		if code != exitcode.Success {
			t.Errorf("%s: expected exit code %d, got %d", name, exitcode.Success, code)
		}
		if !strings.Contains(stderr.String(), "warning: config error: unknown backend: fax") {
			t.Errorf("%s: expected config warning, got %q", name, stderr.String())
		}
	}
}

func TestDefaultGatewayFactory_GoogleNeedsCredentials(t *testing.T) {
	cfg, _ := config.New(t.TempDir())
	cfg.Backend = config.BackendGoogle

	_, err := cli.DefaultGatewayFactory(context.Background(), cfg)
	if !errors.Is(err, cli.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}

	if err := os.WriteFile(cfg.OAuthClientPath(), []byte(`{}`), 0600); err != nil {
		t.Fatalf("write oauth client: %v", err)
	}
	_, err = cli.DefaultGatewayFactory(context.Background(), cfg)
	if !errors.Is(err, cli.ErrAuth) || !strings.Contains(err.Error(), "todolist login") {
		t.Errorf("expected login hint, got %v", err)
	}
}

func TestDefaultGatewayFactory_REST(t *testing.T) {
	cfg, _ := config.New(t.TempDir())

	gw, err := cli.DefaultGatewayFactory(context.Background(), cfg)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if gw == nil {
		t.Fatal("expected a gateway")
	}
}
