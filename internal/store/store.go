// Package store implements the task list state: the active list, the
// completed list, the selection, the view mode and the single edit slot.
//
// Entries are identified by a stable key assigned when they enter the store.
// Operations take positions because that is what a UI hands over, but every
// position is resolved to a key before any state is touched, so selections
// survive deletes and moves.
package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"todolist/internal/gateway"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report swallowed network failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDuplicateOnAdd makes AddTask keep its local entry and append the
// remote echo as a second entry instead of reconciling the two.
func WithDuplicateOnAdd(enabled bool) Option {
	return func(s *Store) {
		s.duplicateOnAdd = enabled
	}
}

// WithKeyFunc overrides the entry key generator.
func WithKeyFunc(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newKey = fn
		}
	}
}

// Store is the task list state. It is safe for concurrent use.
type Store struct {
	gw             gateway.Gateway
	logger         *slog.Logger
	duplicateOnAdd bool
	newKey         func() string

	mu         sync.Mutex
	tasks      []Entry
	completed  []Entry
	selected   map[string]struct{}
	view       ViewMode
	editingKey string
	editBuffer string
	closed     bool
	loaded     bool

	fetches singleflight.Group
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an empty store backed by gw. Call FetchInitial to load the
// remote task set and Close to release it.
func New(gw gateway.Gateway, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		gw:       gw,
		logger:   slog.New(slog.DiscardHandler),
		newKey:   uuid.NewString,
		selected: make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Close cancels in-flight gateway calls and waits for their outcome to be
// applied. Mutators keep working on local state afterwards; AddTask fails.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
	return nil
}

// bind derives a context that also ends when the store is closed.
func (s *Store) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// FetchInitial loads the remote task set into the active list. It runs
// once: after a successful load later calls return nil without a request,
// so local edits, deletes and moves are never overwritten. Entries added
// before the load finishes are kept after the fetched ones. On failure the
// state is left unchanged, a *gateway.NetworkError is returned and the call
// may be retried.
//
// Concurrent calls share one request bound to the store's lifetime. Each
// caller stops waiting when its own ctx ends.
func (s *Store) FetchInitial(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}

	ch := s.fetches.DoChan("list", func() (any, error) {
		return nil, s.load()
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return gateway.Wrap(gateway.OpList, ctx.Err())
	}
}

func (s *Store) load() error {
	remote, err := s.gw.ListTasks(s.ctx)
	if err != nil {
		err = gateway.Wrap(gateway.OpList, err)
		s.logger.Warn("fetch tasks failed", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	next := make([]Entry, 0, len(remote)+len(s.tasks))
	for _, t := range remote {
		next = append(next, s.entryFrom(t))
	}
	next = append(next, s.tasks...)
	s.tasks = next
	s.loaded = true
	s.logger.Debug("fetched tasks", "count", len(remote))
	return nil
}

// AddTask appends an entry for title and dispatches the create request.
// Blank titles and adds during an edit are rejected with a
// *ValidationError and change nothing. ctx bounds the create request,
// which outlives this call.
func (s *Store) AddTask(ctx context.Context, title string) (*Pending, error) {
	s.mu.Lock()
	if strings.TrimSpace(title) == "" {
		s.mu.Unlock()
		return nil, &ValidationError{Err: ErrEmptyTitle}
	}
	if s.editingKey != "" {
		s.mu.Unlock()
		return nil, &ValidationError{Err: ErrEditInProgress}
	}
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	key := s.newKey()
	s.tasks = append(s.tasks, Entry{Key: key, Title: title, Pending: !s.duplicateOnAdd})
	p := newPending(key)
	s.wg.Add(1)
	s.mu.Unlock()

	go s.create(ctx, p, title)
	return p, nil
}

func (s *Store) create(ctx context.Context, p *Pending, title string) {
	defer s.wg.Done()
	ctx, cancel := s.bind(ctx)
	defer cancel()

	task, err := s.gw.CreateTask(ctx, title)
	err = gateway.Wrap(gateway.OpCreate, err)

	s.mu.Lock()
	switch {
	case err != nil:
		s.logger.Warn("create task failed", "title", title, "error", err)
		if !s.duplicateOnAdd {
			s.removeLocked(p.key)
		}
	case s.duplicateOnAdd:
		s.tasks = append(s.tasks, s.entryFrom(task))
	default:
		s.reconcileLocked(p.key, task)
	}
	s.mu.Unlock()
	p.finish(err)
}

// reconcileLocked confirms the optimistic entry key with the remote record.
// The local title wins: it may have been edited while the request was in flight.
func (s *Store) reconcileLocked(key string, task gateway.Task) {
	for _, list := range [][]Entry{s.tasks, s.completed} {
		if i := indexOfKey(list, key); i >= 0 {
			list[i].ID = task.ID
			list[i].Completed = task.Completed
			list[i].Pending = false
			return
		}
	}
	s.logger.Debug("created task no longer in store", "id", task.ID)
}

// BeginEdit puts tasks[index] in edit mode with its title staged. A
// previous edit on another entry is discarded.
func (s *Store) BeginEdit(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(index, s.tasks); err != nil {
		return err
	}
	s.editingKey = s.tasks[index].Key
	s.editBuffer = s.tasks[index].Title
	return nil
}

// UpdateEditBuffer stages newTitle for the entry being edited at index.
func (s *Store) UpdateEditBuffer(index int, newTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(index, s.tasks); err != nil {
		return err
	}
	if s.tasks[index].Key != s.editingKey {
		return ErrNotEditing
	}
	s.editBuffer = newTitle
	return nil
}

// CommitEdit sets the title of tasks[index] and leaves edit mode.
func (s *Store) CommitEdit(index int, newTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(index, s.tasks); err != nil {
		return err
	}
	s.tasks[index].Title = newTitle
	if s.tasks[index].Key == s.editingKey {
		s.clearEditLocked()
	}
	return nil
}

// CancelEdit leaves edit mode on tasks[index] without applying the buffer.
func (s *Store) CancelEdit(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(index, s.tasks); err != nil {
		return err
	}
	if s.tasks[index].Key == s.editingKey {
		s.clearEditLocked()
	}
	return nil
}

// DeleteTask removes the entry at index from the displayed list.
func (s *Store) DeleteTask(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := &s.tasks
	if s.view == ViewCompleted {
		list = &s.completed
	}
	if err := checkIndex(index, *list); err != nil {
		return err
	}
	key := (*list)[index].Key
	*list = removeAt(*list, index)
	s.forgetLocked(key)
	return nil
}

// CompleteTask moves tasks[index] to the end of the completed list.
func (s *Store) CompleteTask(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(index, s.tasks); err != nil {
		return err
	}
	e := s.tasks[index]
	s.tasks = removeAt(s.tasks, index)
	s.completed = append(s.completed, e)
	s.forgetLocked(e.Key)
	return nil
}

// UncompleteTask moves completedTasks[index] to the end of the active list.
func (s *Store) UncompleteTask(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(index, s.completed); err != nil {
		return err
	}
	e := s.completed[index]
	s.completed = removeAt(s.completed, index)
	s.tasks = append(s.tasks, e)
	return nil
}

// ToggleSelection adds tasks[index] to the selection, or removes it.
func (s *Store) ToggleSelection(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewActive {
		return ErrWrongView
	}
	if err := checkIndex(index, s.tasks); err != nil {
		return err
	}
	key := s.tasks[index].Key
	if _, ok := s.selected[key]; ok {
		delete(s.selected, key)
	} else {
		s.selected[key] = struct{}{}
	}
	return nil
}

// DeleteSelected removes every selected entry and clears the selection.
func (s *Store) DeleteSelected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.selected) == 0 {
		return
	}
	kept := s.tasks[:0:0]
	for _, e := range s.tasks {
		if _, ok := s.selected[e.Key]; ok {
			if e.Key == s.editingKey {
				s.clearEditLocked()
			}
			continue
		}
		kept = append(kept, e)
	}
	s.tasks = kept
	clear(s.selected)
}

// CompleteSelected moves every selected entry to the completed list in
// their current order and clears the selection.
func (s *Store) CompleteSelected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.selected) == 0 {
		return
	}
	kept := s.tasks[:0:0]
	for _, e := range s.tasks {
		if _, ok := s.selected[e.Key]; ok {
			if e.Key == s.editingKey {
				s.clearEditLocked()
			}
			s.completed = append(s.completed, e)
			continue
		}
		kept = append(kept, e)
	}
	s.tasks = kept
	clear(s.selected)
}

// SetViewMode switches the displayed list. The selection is kept.
func (s *Store) SetViewMode(mode ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = mode
}

// ToggleViewMode flips between the active and completed lists.
func (s *Store) ToggleViewMode() ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == ViewActive {
		s.view = ViewCompleted
	} else {
		s.view = ViewActive
	}
	return s.view
}

// BackToTasks shows the active list.
func (s *Store) BackToTasks() {
	s.SetViewMode(ViewActive)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Tasks:          append([]Entry(nil), s.tasks...),
		CompletedTasks: append([]Entry(nil), s.completed...),
		View:           s.view,
		EditingKey:     s.editingKey,
		EditBuffer:     s.editBuffer,
	}
	for _, e := range s.tasks {
		if _, ok := s.selected[e.Key]; ok {
			st.Selected = append(st.Selected, e.Key)
		}
	}
	return st
}

// Tasks returns a copy of the active list.
func (s *Store) Tasks() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.tasks...)
}

// CompletedTasks returns a copy of the completed list.
func (s *Store) CompletedTasks() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.completed...)
}

// Displayed returns a copy of the list shown in the current view.
func (s *Store) Displayed() []Entry {
	return s.Snapshot().Displayed()
}

// ViewMode returns the current view.
func (s *Store) ViewMode() ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Editing returns the key and staged title of the entry in edit mode.
func (s *Store) Editing() (key, buffer string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingKey, s.editBuffer, s.editingKey != ""
}

// IsSelected reports whether the entry with key is selected.
func (s *Store) IsSelected(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selected[key]
	return ok
}

func (s *Store) entryFrom(t gateway.Task) Entry {
	return Entry{Key: s.newKey(), ID: t.ID, Title: t.Title, Completed: t.Completed}
}

// removeLocked drops key from whichever list holds it.
func (s *Store) removeLocked(key string) {
	if i := indexOfKey(s.tasks, key); i >= 0 {
		s.tasks = removeAt(s.tasks, i)
	} else if i := indexOfKey(s.completed, key); i >= 0 {
		s.completed = removeAt(s.completed, i)
	}
	s.forgetLocked(key)
}

// forgetLocked drops key from the selection and the edit slot. Selection
// and editing only apply to the active list.
func (s *Store) forgetLocked(key string) {
	delete(s.selected, key)
	if s.editingKey == key {
		s.clearEditLocked()
	}
}

func (s *Store) clearEditLocked() {
	s.editingKey = ""
	s.editBuffer = ""
}

func checkIndex(index int, list []Entry) error {
	if index < 0 || index >= len(list) {
		return indexError(index, len(list))
	}
	return nil
}

func removeAt(list []Entry, index int) []Entry {
	out := make([]Entry, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...)
}
