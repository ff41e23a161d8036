// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"
	"log/slog"

	"todolist/internal/config"
	"todolist/internal/gateway"
	"todolist/internal/logging"
	"todolist/internal/store"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsGateway returns true if the command talks to the remote task store.
	// Commands like help, version, login, logout return false.
	NeedsGateway() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths, settings).
	// gw is nil if NeedsGateway() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, gw gateway.Gateway, args []string, out, errOut io.Writer) int
}

// cliLogger logs to errOut when --debug is set and discards otherwise.
func cliLogger(cfg *config.Config, errOut io.Writer) *slog.Logger {
	if !cfg.Debug {
		return logging.Discard()
	}
	return logging.NewLogger(logging.Options{
		Level:     "debug",
		Writer:    errOut,
		Component: config.AppName,
	})
}

// newStore creates a store for gw configured from cfg.
func newStore(cfg *config.Config, gw gateway.Gateway, logger *slog.Logger) *store.Store {
	return store.New(gw,
		store.WithLogger(logger),
		store.WithDuplicateOnAdd(cfg.DuplicateOnAdd),
	)
}
