package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"todolist/internal/config"
	"todolist/internal/exitcode"
	"todolist/internal/gateway"
	"todolist/internal/store"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Create a task" }
func (c *AddCmd) Usage() string      { return "todolist add [common flags] <title...>" }
func (c *AddCmd) NeedsGateway() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, gw gateway.Gateway, args []string, out, errOut io.Writer) int {
	// Join args to form title
	title := strings.Join(args, " ")

	s := newStore(cfg, gw, cliLogger(cfg, errOut))
	defer s.Close()

	p, err := s.AddTask(ctx, title)
	if err != nil {
		return reportError(errOut, err)
	}
	if err := p.Wait(ctx); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// reportError prints err in the CLI's "error: ..." form and maps it to an
// exit code.
func reportError(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %s\n", describeError(err))
	return exitCodeFor(err)
}

func describeError(err error) string {
	switch {
	case gateway.IsNetworkError(err):
		return "backend error: " + err.Error()
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return err.Error()
	}
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case gateway.IsNetworkError(err), errors.Is(err, store.ErrClosed), errors.Is(err, context.Canceled):
		return exitcode.BackendError
	default:
		return exitcode.UserError
	}
}
