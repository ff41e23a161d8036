package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"todolist/internal/config"
	"todolist/internal/exitcode"
	"todolist/internal/gateway"
	"todolist/internal/output"
	"todolist/internal/store"
)

func init() {
	Register(&ShellCmd{})
}

// ShellCmd implements the shell command: one store operation per input line.
type ShellCmd struct {
	file  string
	stdin io.Reader
}

// SetInput sets the reader used when --file is not given (for testing).
func (c *ShellCmd) SetInput(r io.Reader) {
	c.stdin = r
}

func (c *ShellCmd) Name() string       { return "shell" }
func (c *ShellCmd) Aliases() []string  { return nil }
func (c *ShellCmd) Synopsis() string   { return "Run task list commands from stdin or a file" }
func (c *ShellCmd) Usage() string      { return "todolist shell [common flags] [--file <path>]" }
func (c *ShellCmd) NeedsGateway() bool { return true }

func (c *ShellCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.file, "file", "", "")
}

func (c *ShellCmd) Run(ctx context.Context, cfg *config.Config, gw gateway.Gateway, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	in := c.stdin
	if in == nil {
		in = os.Stdin
	}
	if c.file != "" {
		f, err := os.Open(c.file)
		if err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			return exitcode.UserError
		}
		defer f.Close()
		in = f
	}

	s := newStore(cfg, gw, cliLogger(cfg, errOut))
	defer s.Close()

	sh := &shell{store: s, out: out}
	if err := s.FetchInitial(ctx); err != nil {
		sh.fail(err)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fmt.Fprintf(out, "> %s\n", line)
		sh.exec(ctx, line)
	}
	sh.wait(ctx)

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	if sh.failures > 0 {
		return sh.code
	}
	return exitcode.Success
}

// shell runs one command line at a time against a store. Failures are
// written inline so a transcript shows each result next to its command.
type shell struct {
	store    *store.Store
	out      io.Writer
	pending  []*store.Pending
	failures int
	code     int
}

func (sh *shell) exec(ctx context.Context, line string) {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	if want, ok := verbViews[name]; ok && sh.store.ViewMode() != want {
		sh.fail(fmt.Errorf("%s: %w", name, store.ErrWrongView))
		return
	}

	switch name {
	case "add":
		p, err := sh.store.AddTask(ctx, rest)
		if err != nil {
			sh.fail(err)
			return
		}
		sh.pending = append(sh.pending, p)
	case "edit":
		sh.at(args, sh.store.BeginEdit)
	case "type":
		sh.at(args, func(i int) error {
			return sh.store.UpdateEditBuffer(i, textAfter(rest))
		})
	case "save":
		sh.at(args, func(i int) error { return sh.save(i, rest) })
	case "cancel":
		sh.at(args, sh.store.CancelEdit)
	case "rm":
		sh.at(args, sh.store.DeleteTask)
	case "done":
		sh.at(args, sh.store.CompleteTask)
	case "undone":
		sh.at(args, sh.store.UncompleteTask)
	case "select":
		sh.at(args, sh.store.ToggleSelection)
	case "rmsel":
		sh.store.DeleteSelected()
	case "donesel":
		sh.store.CompleteSelected()
	case "view":
		sh.view(rest)
	case "back":
		sh.store.BackToTasks()
	case "show":
		output.FormatState(sh.out, sh.store.Snapshot())
	case "wait":
		sh.wait(ctx)
	default:
		sh.fail(fmt.Errorf("unknown shell command: %s", name))
	}
}

// verbViews lists the commands that address one list only. Numbers are
// positions in the displayed list, so they are refused in the other view.
var verbViews = map[string]store.ViewMode{
	"edit":    store.ViewActive,
	"type":    store.ViewActive,
	"save":    store.ViewActive,
	"cancel":  store.ViewActive,
	"done":    store.ViewActive,
	"select":  store.ViewActive,
	"rmsel":   store.ViewActive,
	"donesel": store.ViewActive,
	"undone":  store.ViewCompleted,
}

// at runs op on the 0-based index named by args[0].
func (sh *shell) at(args []string, op func(int) error) {
	idx, err := ParsePosition(args)
	if err != nil {
		sh.fail(err)
		return
	}
	if err := op(idx); err != nil {
		if errors.Is(err, store.ErrIndexOutOfRange) {
			err = fmt.Errorf("task not found: %d", idx+1)
		}
		sh.fail(err)
	}
}

// save commits the text after the task number, or the staged buffer when
// no text is given.
func (sh *shell) save(idx int, rest string) error {
	if text := textAfter(rest); text != "" {
		return sh.store.CommitEdit(idx, text)
	}
	key, buffer, ok := sh.store.Editing()
	tasks := sh.store.Tasks()
	if idx < 0 || idx >= len(tasks) {
		return fmt.Errorf("%w: %d", store.ErrIndexOutOfRange, idx)
	}
	if !ok || tasks[idx].Key != key {
		return store.ErrNotEditing
	}
	return sh.store.CommitEdit(idx, buffer)
}

func (sh *shell) view(arg string) {
	if strings.EqualFold(arg, "toggle") {
		sh.store.ToggleViewMode()
		return
	}
	mode, err := store.ParseViewMode(arg)
	if err != nil {
		sh.fail(err)
		return
	}
	sh.store.SetViewMode(mode)
}

// wait blocks until every add issued so far has been answered.
func (sh *shell) wait(ctx context.Context) {
	pending := sh.pending
	sh.pending = nil
	for _, p := range pending {
		if err := p.Wait(ctx); err != nil {
			sh.fail(err)
		}
	}
}

func (sh *shell) fail(err error) {
	fmt.Fprintf(sh.out, "error: %s\n", describeError(err))
	sh.failures++
	if code := exitCodeFor(err); code > sh.code {
		sh.code = code
	}
}

// textAfter returns rest without its leading task number.
func textAfter(rest string) string {
	_, text, _ := strings.Cut(rest, " ")
	return strings.TrimSpace(text)
}
