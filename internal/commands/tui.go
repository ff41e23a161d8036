package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"todolist/internal/config"
	"todolist/internal/exitcode"
	"todolist/internal/gateway"
	"todolist/internal/logging"
	"todolist/internal/tui"
)

func init() {
	Register(&TUICmd{})
}

// TUICmd implements the interactive task list. It is the default command.
type TUICmd struct{}

func (c *TUICmd) Name() string       { return "tui" }
func (c *TUICmd) Aliases() []string  { return []string{"ui"} }
func (c *TUICmd) Synopsis() string   { return "Open the interactive task list" }
func (c *TUICmd) Usage() string      { return "todolist tui [common flags]" }
func (c *TUICmd) NeedsGateway() bool { return true }

func (c *TUICmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TUICmd) Run(ctx context.Context, cfg *config.Config, gw gateway.Gateway, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	// The program owns the terminal, so logs go to a file.
	logFile, err := logging.OpenFile(cfg.LogPath())
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	defer logFile.Close()

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	logger := logging.NewLogger(logging.Options{
		Level:      level,
		Writer:     logFile,
		Component:  "tui",
		Timestamps: true,
	})

	s := newStore(cfg, gw, logger)
	defer s.Close()

	app := tui.NewApp(s, tui.WithLogger(logger), tui.WithContext(ctx))
	if err := tui.Run(ctx, app, tea.WithOutput(out)); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}
