package store

import (
	"fmt"
	"strings"
)

// ViewMode selects which list is displayed.
type ViewMode int

const (
	ViewActive ViewMode = iota
	ViewCompleted
)

func (m ViewMode) String() string {
	switch m {
	case ViewActive:
		return "active"
	case ViewCompleted:
		return "completed"
	default:
		return fmt.Sprintf("ViewMode(%d)", int(m))
	}
}

// ParseViewMode parses "active" or "completed" (case-insensitive).
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return ViewActive, nil
	case "completed":
		return ViewCompleted, nil
	default:
		return ViewActive, fmt.Errorf("unknown view: %s", s)
	}
}

// Entry is a task held by the store.
type Entry struct {
	// Key identifies the entry for its whole life in the store. Selection
	// and edit state refer to keys, never to positions.
	Key string

	// ID is the remote identifier, empty until the remote store confirms it.
	ID string

	Title string

	// Completed is the flag reported by the remote store. Moving an entry
	// between the active and completed lists leaves it untouched.
	Completed bool

	// Pending is set while an added entry waits for the create response.
	Pending bool
}

// State is a point-in-time copy of the store.
type State struct {
	Tasks          []Entry
	CompletedTasks []Entry
	Selected       []string // keys, in Tasks order
	View           ViewMode
	EditingKey     string
	EditBuffer     string
}

// Displayed returns the list shown in the current view.
func (s State) Displayed() []Entry {
	if s.View == ViewCompleted {
		return s.CompletedTasks
	}
	return s.Tasks
}

// IsSelected reports whether key is selected.
func (s State) IsSelected(key string) bool {
	for _, k := range s.Selected {
		if k == key {
			return true
		}
	}
	return false
}

// IsEditing reports whether key is the entry in edit mode.
func (s State) IsEditing(key string) bool {
	return key != "" && s.EditingKey == key
}

// EditingIndex returns the position of the editing entry in Tasks, or -1.
func (s State) EditingIndex() int {
	if s.EditingKey == "" {
		return -1
	}
	return indexOfKey(s.Tasks, s.EditingKey)
}

func indexOfKey(entries []Entry, key string) int {
	for i, e := range entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}
