package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"todolist/internal/gateway"
	"todolist/internal/store"
	"todolist/internal/testutil"
)

func newTestApp(t *testing.T, gw *testutil.FakeGateway, opts ...AppOption) (*App, *store.Store) {
	t.Helper()
	s := store.New(gw)
	t.Cleanup(func() { s.Close() })
	a := NewApp(s, opts...)
	a.Update(a.fetch()())
	return a, s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyMsg(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func send(a *App, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = a.Update(msg)
	}
	return cmd
}

// settle waits for every in-flight add and feeds its outcome to the App.
func settle(t *testing.T, a *App) {
	t.Helper()
	for key, p := range a.inflight {
		if err := p.Wait(context.Background()); err != nil && !gateway.IsNetworkError(err) {
			t.Fatalf("wait %s: %v", key, err)
		}
		send(a, createdMsg{key: key, err: p.Err()})
	}
}

func titles(entries []store.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}

func ab() *testutil.FakeGateway {
	return testutil.NewFakeGateway(
		gateway.Task{ID: "1", Title: "A"},
		gateway.Task{ID: "2", Title: "B"},
	)
}

func TestApp_FetchLoadsTasks(t *testing.T) {
	a, _ := newTestApp(t, ab())

	if a.loading {
		t.Error("expected loading to be false after fetch")
	}
	if a.status != "Loaded 2 tasks" {
		t.Errorf("expected status %q, got %q", "Loaded 2 tasks", a.status)
	}
	view := a.View()
	for _, want := range []string{"Todo List", "Tasks (2)", "A", "B"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestApp_FetchFailure(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.ListTasksErr = testutil.ErrUnavailable
	a, _ := newTestApp(t, gw)

	if !a.failed {
		t.Error("expected failed status")
	}
	if !strings.Contains(a.status, "Could not load tasks") {
		t.Errorf("unexpected status %q", a.status)
	}
	if !strings.Contains(a.View(), "Nothing here yet.") {
		t.Error("expected empty list hint")
	}
}

func TestApp_AddTask(t *testing.T) {
	gw := ab()
	a, s := newTestApp(t, gw)

	cmd := send(a, runes("Buy milk"), keyMsg(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected a command waiting for the create")
	}
	if a.input.Value() != "" {
		t.Errorf("expected input reset, got %q", a.input.Value())
	}
	tasks := s.Tasks()
	if len(tasks) != 3 || tasks[2].Title != "Buy milk" {
		t.Fatalf("expected optimistic entry, got %v", titles(tasks))
	}

	settle(t, a)

	if len(a.inflight) != 0 {
		t.Errorf("expected no in-flight adds, got %d", len(a.inflight))
	}
	tasks = s.Tasks()
	if len(tasks) != 3 || tasks[2].Pending {
		t.Errorf("expected reconciled entry, got %+v", tasks)
	}
	if remote := gw.Remote(); len(remote) != 3 || remote[2].Title != "Buy milk" {
		t.Errorf("expected remote task, got %+v", remote)
	}
}

func TestApp_AddFailureRollsBack(t *testing.T) {
	gw := ab()
	gw.CreateTaskErr = testutil.ErrUnavailable
	a, s := newTestApp(t, gw)

	send(a, runes("x"), keyMsg(tea.KeyEnter))
	settle(t, a)

	if got := titles(s.Tasks()); len(got) != 2 {
		t.Errorf("expected rollback to [A B], got %v", got)
	}
	if !a.failed || !strings.Contains(a.status, "Could not save task") {
		t.Errorf("unexpected status %q", a.status)
	}
}

func TestApp_EmptyTitleAlert(t *testing.T) {
	a, s := newTestApp(t, ab())

	send(a, runes("   "), keyMsg(tea.KeyEnter))

	if a.alert != AlertEmptyTitle {
		t.Fatalf("expected alert %q, got %q", AlertEmptyTitle, a.alert)
	}
	if len(s.Tasks()) != 2 {
		t.Error("expected no task added")
	}
	if !strings.Contains(a.View(), AlertEmptyTitle) {
		t.Error("expected alert in view")
	}

	// Other keys are swallowed while the alert is shown.
	send(a, runes("q"))
	if a.alert == "" {
		t.Fatal("expected alert to stay open")
	}
	send(a, keyMsg(tea.KeyEnter))
	if a.alert != "" {
		t.Error("expected alert dismissed")
	}
}

func TestApp_EditCommit(t *testing.T) {
	a, s := newTestApp(t, ab())

	send(a, keyMsg(tea.KeyTab), runes("e"))
	if a.focus != focusEdit {
		t.Fatalf("expected edit focus, got %d", a.focus)
	}
	send(a, runes("!"))
	if _, buffer, ok := s.Editing(); !ok || buffer != "A!" {
		t.Errorf("expected buffer %q, got %q (editing=%v)", "A!", buffer, ok)
	}

	send(a, keyMsg(tea.KeyEnter))

	if a.focus != focusList {
		t.Errorf("expected list focus, got %d", a.focus)
	}
	if got := s.Tasks()[0].Title; got != "A!" {
		t.Errorf("expected title %q, got %q", "A!", got)
	}
	if _, _, ok := s.Editing(); ok {
		t.Error("expected edit mode to end")
	}
}

func TestApp_EditCancel(t *testing.T) {
	a, s := newTestApp(t, ab())

	send(a, keyMsg(tea.KeyTab), runes("e"), runes("zzz"), keyMsg(tea.KeyEsc))

	if got := s.Tasks()[0].Title; got != "A" {
		t.Errorf("expected title %q, got %q", "A", got)
	}
	if _, _, ok := s.Editing(); ok {
		t.Error("expected edit mode to end")
	}
}

func TestApp_AddDuringEditAlert(t *testing.T) {
	a, s := newTestApp(t, ab())

	send(a, keyMsg(tea.KeyTab), runes("e"), keyMsg(tea.KeyTab))
	if a.focus != focusInput {
		t.Fatalf("expected input focus, got %d", a.focus)
	}
	send(a, runes("new"), keyMsg(tea.KeyEnter))

	if a.alert != AlertEditInProgress {
		t.Errorf("expected alert %q, got %q", AlertEditInProgress, a.alert)
	}
	if len(s.Tasks()) != 2 {
		t.Error("expected no task added")
	}
	if _, _, ok := s.Editing(); !ok {
		t.Error("expected edit to stay in progress")
	}
}

func TestApp_SelectAndCompleteSelected(t *testing.T) {
	gw := testutil.NewFakeGateway(
		gateway.Task{ID: "1", Title: "X"},
		gateway.Task{ID: "2", Title: "Y"},
		gateway.Task{ID: "3", Title: "Z"},
	)
	a, s := newTestApp(t, gw)

	send(a, keyMsg(tea.KeyTab), keyMsg(tea.KeySpace), runes("j"), keyMsg(tea.KeySpace))
	if n := len(s.Snapshot().Selected); n != 2 {
		t.Fatalf("expected 2 selected, got %d", n)
	}
	if !strings.Contains(a.View(), "2 selected") {
		t.Error("expected bulk bar in view")
	}

	send(a, runes("C"))

	if got := titles(s.Tasks()); len(got) != 1 || got[0] != "Z" {
		t.Errorf("expected [Z], got %v", got)
	}
	if got := titles(s.CompletedTasks()); len(got) != 2 || got[0] != "X" || got[1] != "Y" {
		t.Errorf("expected [X Y], got %v", got)
	}
}

func TestApp_BulkKeysNeedSelection(t *testing.T) {
	a, s := newTestApp(t, ab())

	send(a, keyMsg(tea.KeyTab), runes("D"), runes("C"))

	if len(s.Tasks()) != 2 || len(s.CompletedTasks()) != 0 {
		t.Error("expected bulk keys to do nothing without a selection")
	}
}

func TestApp_CompleteAndUncomplete(t *testing.T) {
	a, s := newTestApp(t, ab())

	send(a, keyMsg(tea.KeyTab), runes("c"), runes("v"))
	if s.ViewMode() != store.ViewCompleted {
		t.Fatal("expected completed view")
	}
	if !strings.Contains(a.View(), "Completed (1)") {
		t.Error("expected completed header")
	}

	send(a, runes("u"), runes("b"))

	if s.ViewMode() != store.ViewActive {
		t.Error("expected active view after back")
	}
	if got := titles(s.Tasks()); len(got) != 2 || got[0] != "B" || got[1] != "A" {
		t.Errorf("expected [B A], got %v", got)
	}
}

func TestApp_SelectInCompletedViewIgnored(t *testing.T) {
	a, s := newTestApp(t, ab())

	send(a, keyMsg(tea.KeyTab), runes("c"), runes("v"), keyMsg(tea.KeySpace))

	if n := len(s.Snapshot().Selected); n != 0 {
		t.Errorf("expected no selection, got %d", n)
	}
}

func TestApp_Delete(t *testing.T) {
	a, s := newTestApp(t, ab())

	send(a, keyMsg(tea.KeyTab), runes("j"), runes("d"))

	if got := titles(s.Tasks()); len(got) != 1 || got[0] != "A" {
		t.Errorf("expected [A], got %v", got)
	}
	if a.cursor != 0 {
		t.Errorf("expected cursor clamped to 0, got %d", a.cursor)
	}
}

func TestApp_Copy(t *testing.T) {
	var copied string
	a, _ := newTestApp(t, ab(), WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	send(a, keyMsg(tea.KeyTab), runes("j"), runes("y"))

	if copied != "B" {
		t.Errorf("expected %q copied, got %q", "B", copied)
	}
	if a.status != `Copied "B"` {
		t.Errorf("unexpected status %q", a.status)
	}
}

func TestApp_CopyFailure(t *testing.T) {
	a, _ := newTestApp(t, ab(), WithClipboard(func(string) error {
		return errors.New("no clipboard")
	}))

	send(a, keyMsg(tea.KeyTab), runes("y"))

	if !a.failed || a.status != "Copy failed: no clipboard" {
		t.Errorf("unexpected status %q", a.status)
	}
}

func TestApp_Quit(t *testing.T) {
	a, _ := newTestApp(t, ab())

	cmd := send(a, keyMsg(tea.KeyCtrlC))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestApp_ReloadKeepsLocalChanges(t *testing.T) {
	gw := ab()
	a, s := newTestApp(t, gw)

	cmd := send(a, keyMsg(tea.KeyTab), runes("c"), runes("r"))
	if cmd != nil {
		t.Error("expected reload to be disabled after a successful load")
	}
	if got := titles(s.Tasks()); len(got) != 1 || got[0] != "B" {
		t.Errorf("expected [B], got %v", got)
	}
	if got := titles(s.CompletedTasks()); len(got) != 1 || got[0] != "A" {
		t.Errorf("expected [A], got %v", got)
	}
	if n := gw.Calls(gateway.OpList); n != 1 {
		t.Errorf("expected 1 list request, got %d", n)
	}
}

func TestApp_RetryAfterFailedLoad(t *testing.T) {
	gw := ab()
	gw.ListTasksErr = testutil.ErrUnavailable
	a, s := newTestApp(t, gw)
	if !a.failed {
		t.Fatal("expected failed load")
	}

	gw.ListTasksErr = nil
	cmd := send(a, keyMsg(tea.KeyTab), runes("r"))
	if cmd == nil || !a.loading {
		t.Fatal("expected retry to start a load")
	}
	send(a, a.fetch()())

	if a.failed || a.status != "Loaded 2 tasks" {
		t.Errorf("unexpected status %q", a.status)
	}
	if len(s.Tasks()) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(s.Tasks()))
	}
	if cmd := send(a, runes("r")); cmd != nil {
		t.Error("expected retry disabled after a successful load")
	}
}
