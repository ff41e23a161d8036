// Package gateway defines the backend-agnostic boundary to the remote task store.
package gateway

import "context"

// Gateway is the remote task store as seen by the task list store.
// Backends (REST, Google Tasks) implement it; the store and the commands
// never import a backend SDK directly.
type Gateway interface {
	// ListTasks returns the full task set in remote order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task with the given title and returns the
	// record echoed by the remote store.
	CreateTask(ctx context.Context, title string) (Task, error)
}
