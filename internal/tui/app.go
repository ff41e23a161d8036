// Package tui is the interactive task list: an input for new tasks, the
// active or completed list with per-task actions, bulk actions on the
// selection and a blocking alert for rejected input.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todolist/internal/logging"
	"todolist/internal/output"
	"todolist/internal/store"
)

// Alert texts shown for rejected input.
const (
	AlertEmptyTitle     = "Please fill out the task"
	AlertEditInProgress = "Please save or cancel the current task edit"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusList
	focusEdit
)

// fetchedMsg reports the outcome of FetchInitial.
type fetchedMsg struct {
	err error
}

// createdMsg reports the outcome of the create request behind an add.
type createdMsg struct {
	key string
	err error
}

// AppOption customizes the App.
type AppOption func(*App)

// WithLogger sets the logger for UI events.
func WithLogger(logger *slog.Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) AppOption {
	return func(a *App) {
		if write != nil {
			a.copy = write
		}
	}
}

// WithContext bounds the gateway calls the App starts.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// App is the bubbletea model driving a store.
type App struct {
	store  *store.Store
	ctx    context.Context
	logger *slog.Logger
	copy   func(string) error

	keys    KeyMap
	help    help.Model
	input   textinput.Model
	edit    textinput.Model
	spinner spinner.Model

	focus    focusArea
	cursor   int
	loading  bool
	loadErr  bool
	inflight map[string]*store.Pending
	alert    string
	status   string
	failed   bool

	width  int
	height int
}

// NewApp creates the model for s. The initial fetch starts in Init.
func NewApp(s *store.Store, opts ...AppOption) *App {
	input := textinput.New()
	input.Placeholder = "What needs to be done?"
	input.Prompt = "› "
	input.CharLimit = 500
	input.Focus()

	edit := textinput.New()
	edit.Prompt = ""
	edit.CharLimit = 500

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(pendingStyle))

	a := &App{
		store:    s,
		ctx:      context.Background(),
		logger:   logging.Discard(),
		copy:     clipboard.WriteAll,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		input:    input,
		edit:     edit,
		spinner:  sp,
		focus:    focusInput,
		loading:  true,
		inflight: make(map[string]*store.Pending),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, app *App, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(app, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.fetch(), a.spinner.Tick, textinput.Blink)
}

func (a *App) fetch() tea.Cmd {
	s, ctx := a.store, a.ctx
	return func() tea.Msg {
		return fetchedMsg{err: s.FetchInitial(ctx)}
	}
}

func waitCreated(p *store.Pending) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return createdMsg{key: p.Key(), err: p.Err()}
	}
}

func (a *App) busy() bool {
	return a.loading || len(a.inflight) > 0
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.input.Width = max(10, msg.Width-4)
		a.edit.Width = max(10, msg.Width-10)
		return a, nil

	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case fetchedMsg:
		a.loading = false
		a.loadErr = msg.err != nil
		if msg.err != nil {
			a.setError("Could not load tasks: %v", msg.err)
		} else {
			a.setStatus("Loaded %d tasks", len(a.store.Tasks()))
		}
		a.clampCursor()
		return a, nil

	case createdMsg:
		delete(a.inflight, msg.key)
		if msg.err != nil {
			a.setError("Could not save task: %v", msg.err)
		}
		a.clampCursor()
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		if a.alert != "" {
			return a.handleAlertKey(msg)
		}
		switch a.focus {
		case focusInput:
			return a.handleInputKey(msg)
		case focusEdit:
			return a.handleEditKey(msg)
		default:
			return a.handleListKey(msg)
		}
	}

	var cmd tea.Cmd
	switch a.focus {
	case focusInput:
		a.input, cmd = a.input.Update(msg)
	case focusEdit:
		a.edit, cmd = a.edit.Update(msg)
	}
	return a, cmd
}

// handleAlertKey only lets the alert be dismissed.
func (a *App) handleAlertKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc, tea.KeySpace:
		a.alert = ""
	}
	return a, nil
}

func (a *App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return a.submit()
	case tea.KeyTab, tea.KeyEsc:
		a.input.Blur()
		a.focus = focusList
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) submit() (tea.Model, tea.Cmd) {
	p, err := a.store.AddTask(a.ctx, a.input.Value())
	if err != nil {
		a.showError(err)
		return a, nil
	}
	a.input.Reset()
	a.inflight[p.Key()] = p
	a.logger.Debug("task added", "key", p.Key())
	return a, tea.Batch(waitCreated(p), a.spinner.Tick)
}

func (a *App) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx := a.editingIndex()
	if idx < 0 {
		a.focusList()
		return a, nil
	}
	switch msg.Type {
	case tea.KeyEnter:
		if err := a.store.CommitEdit(idx, a.edit.Value()); err != nil {
			a.showError(err)
		}
		a.focusList()
		return a, nil
	case tea.KeyEsc:
		if err := a.store.CancelEdit(idx); err != nil {
			a.showError(err)
		}
		a.focusList()
		return a, nil
	case tea.KeyTab:
		a.edit.Blur()
		a.focus = focusInput
		return a, a.input.Focus()
	}
	var cmd tea.Cmd
	a.edit, cmd = a.edit.Update(msg)
	if err := a.store.UpdateEditBuffer(idx, a.edit.Value()); err != nil {
		a.showError(err)
	}
	return a, cmd
}

func (a *App) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.syncKeys()
	n := len(a.store.Displayed())

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, a.keys.Down):
		if a.cursor < n-1 {
			a.cursor++
		}
	case key.Matches(msg, a.keys.Focus):
		a.focus = focusInput
		return a, a.input.Focus()
	case key.Matches(msg, a.keys.Select):
		a.act(a.store.ToggleSelection(a.cursor))
	case key.Matches(msg, a.keys.Edit):
		return a, a.beginEdit()
	case key.Matches(msg, a.keys.Delete):
		a.act(a.store.DeleteTask(a.cursor))
	case key.Matches(msg, a.keys.Complete):
		a.act(a.store.CompleteTask(a.cursor))
	case key.Matches(msg, a.keys.Uncomplete):
		a.act(a.store.UncompleteTask(a.cursor))
	case key.Matches(msg, a.keys.BulkDelete):
		a.store.DeleteSelected()
	case key.Matches(msg, a.keys.BulkComplete):
		a.store.CompleteSelected()
	case key.Matches(msg, a.keys.ToggleView):
		a.store.ToggleViewMode()
		a.cursor = 0
	case key.Matches(msg, a.keys.Back):
		a.store.BackToTasks()
		a.cursor = 0
	case key.Matches(msg, a.keys.Copy):
		a.copyTitle()
	case key.Matches(msg, a.keys.Reload):
		if !a.loading && a.loadErr {
			a.loading = true
			return a, tea.Batch(a.fetch(), a.spinner.Tick)
		}
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	}
	a.clampCursor()
	return a, nil
}

func (a *App) beginEdit() tea.Cmd {
	if a.store.ViewMode() != store.ViewActive {
		a.setError("Switch back to tasks to edit")
		return nil
	}
	tasks := a.store.Tasks()
	if a.cursor >= len(tasks) {
		return nil
	}
	// Resume an edit already in progress on this entry.
	if key, buffer, ok := a.store.Editing(); ok && key == tasks[a.cursor].Key {
		a.edit.SetValue(buffer)
	} else {
		if err := a.store.BeginEdit(a.cursor); err != nil {
			a.showError(err)
			return nil
		}
		a.edit.SetValue(tasks[a.cursor].Title)
	}
	a.edit.CursorEnd()
	a.focus = focusEdit
	return a.edit.Focus()
}

func (a *App) focusList() {
	a.edit.Blur()
	a.edit.Reset()
	a.focus = focusList
}

func (a *App) copyTitle() {
	list := a.store.Displayed()
	if a.cursor >= len(list) {
		return
	}
	title := list[a.cursor].Title
	if err := a.copy(title); err != nil {
		a.setError("Copy failed: %v", err)
		return
	}
	a.setStatus("Copied %q", title)
}

// act reports the error of a list action, if any.
func (a *App) act(err error) {
	if err != nil {
		a.showError(err)
		return
	}
	a.status = ""
}

// showError opens the alert for rejected input and puts anything else on
// the status line.
func (a *App) showError(err error) {
	switch {
	case errors.Is(err, store.ErrEmptyTitle):
		a.alert = AlertEmptyTitle
	case errors.Is(err, store.ErrEditInProgress):
		a.alert = AlertEditInProgress
	case errors.Is(err, store.ErrWrongView):
		a.setError("Switch back to tasks to select")
	case errors.Is(err, store.ErrIndexOutOfRange):
		// Empty list; nothing to act on.
	default:
		a.setError("%v", err)
	}
}

func (a *App) setStatus(format string, args ...any) {
	a.status = fmt.Sprintf(format, args...)
	a.failed = false
}

func (a *App) setError(format string, args ...any) {
	a.status = fmt.Sprintf(format, args...)
	a.failed = true
	a.logger.Warn(a.status)
}

func (a *App) editingIndex() int {
	return a.store.Snapshot().EditingIndex()
}

func (a *App) clampCursor() {
	n := len(a.store.Displayed())
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// syncKeys enables the bindings that apply to the current state.
func (a *App) syncKeys() {
	st := a.store.Snapshot()
	active := st.View == store.ViewActive
	hasSelection := len(st.Selected) > 0

	a.keys.Select.SetEnabled(active)
	a.keys.Edit.SetEnabled(active)
	a.keys.Complete.SetEnabled(active)
	a.keys.Uncomplete.SetEnabled(!active)
	a.keys.BulkDelete.SetEnabled(active && hasSelection)
	a.keys.BulkComplete.SetEnabled(active && hasSelection)
	a.keys.Back.SetEnabled(!active)
	a.keys.Reload.SetEnabled(a.loadErr && !a.loading)
	if active {
		a.keys.ToggleView.SetHelp("v", "show completed")
	} else {
		a.keys.ToggleView.SetHelp("v", "hide completed")
	}
}

func (a *App) View() string {
	if a.alert != "" {
		return a.renderAlert()
	}
	a.syncKeys()
	st := a.store.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Todo List"))
	b.WriteString("\n\n")
	b.WriteString(a.input.View())
	b.WriteString("\n\n")

	header := fmt.Sprintf("Tasks (%d)", len(st.Tasks))
	if st.View == store.ViewCompleted {
		header = fmt.Sprintf("Completed (%d)", len(st.CompletedTasks))
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	list := st.Displayed()
	switch {
	case a.loading && len(list) == 0:
		b.WriteString(a.spinner.View() + " Loading tasks…\n")
	case len(list) == 0:
		b.WriteString(hintStyle.Render("Nothing here yet.") + "\n")
	}
	for i, e := range list {
		b.WriteString(a.renderRow(i, e, st))
		b.WriteString("\n")
	}

	if n := len(st.Selected); n > 0 && st.View == store.ViewActive {
		b.WriteString(bulkStyle.Render(fmt.Sprintf("%d selected · C complete selected · D delete selected", n)))
		b.WriteString("\n")
	}

	if a.status != "" {
		style := statusStyle
		if a.failed {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(a.status) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(a.help.View(a.keys))
	return b.String()
}

func (a *App) renderRow(i int, e store.Entry, st store.State) string {
	cursor := "  "
	if i == a.cursor && a.focus != focusInput {
		cursor = cursorStyle.Render("> ")
	}

	box := "[ ]"
	if st.View == store.ViewCompleted {
		box = "[✓]"
	} else if st.IsSelected(e.Key) {
		box = selectedStyle.Render("[x]")
	}

	title := output.DisplayTitle(e.Title)
	switch {
	case st.IsEditing(e.Key) && a.focus == focusEdit:
		title = a.edit.View()
	case st.IsEditing(e.Key):
		title = editingStyle.Render(output.DisplayTitle(st.EditBuffer) + " (editing)")
	case st.View == store.ViewCompleted:
		title = completedStyle.Render(title)
	}
	if e.Pending {
		title += " " + pendingStyle.Render(a.spinner.View()+" saving")
	}
	return cursor + box + " " + title
}

func (a *App) renderAlert() string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		errorStyle.Bold(true).Render(a.alert),
		"",
		hintStyle.Render("press enter to dismiss"),
	)
	box := alertStyle.Render(body)
	if a.width == 0 || a.height == 0 {
		return box
	}
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}
