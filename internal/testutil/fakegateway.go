// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"todolist/internal/gateway"
)

// ErrUnavailable is a canned transport failure.
var ErrUnavailable = errors.New("connection refused")

// FakeGateway is an in-memory implementation of gateway.Gateway for testing.
type FakeGateway struct {
	mu     sync.RWMutex
	tasks  []gateway.Task
	nextID int
	calls  map[string]int

	// Error injection for testing
	ListTasksErr  error
	CreateTaskErr error

	// Gate, when set, holds every CreateTask until a value is received.
	Gate chan struct{}

	// ListGate, when set, holds every ListTasks until a value is received.
	ListGate chan struct{}
}

// NewFakeGateway creates a FakeGateway holding tasks. Created tasks get
// numeric IDs following the highest numeric ID seen.
func NewFakeGateway(tasks ...gateway.Task) *FakeGateway {
	f := &FakeGateway{calls: make(map[string]int)}
	for _, t := range tasks {
		f.AddTask(t)
	}
	return f
}

// AddTask seeds a task in the fake remote store.
func (f *FakeGateway) AddTask(t gateway.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, err := strconv.Atoi(t.ID); err == nil && n > f.nextID {
		f.nextID = n
	}
	f.tasks = append(f.tasks, t)
}

// Remote returns a copy of the tasks in the fake remote store.
func (f *FakeGateway) Remote() []gateway.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]gateway.Task(nil), f.tasks...)
}

// Calls returns how many times op was invoked.
func (f *FakeGateway) Calls(op string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[op]
}

// ListTasks implements gateway.Gateway.
func (f *FakeGateway) ListTasks(ctx context.Context) ([]gateway.Task, error) {
	f.mu.Lock()
	f.calls[gateway.OpList]++
	gate := f.ListGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.ListTasksErr != nil {
		return nil, &gateway.NetworkError{Op: gateway.OpList, Err: f.ListTasksErr}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Remote(), nil
}

// CreateTask implements gateway.Gateway.
func (f *FakeGateway) CreateTask(ctx context.Context, title string) (gateway.Task, error) {
	f.mu.Lock()
	f.calls[gateway.OpCreate]++
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return gateway.Task{}, ctx.Err()
		}
	}
	if f.CreateTaskErr != nil {
		return gateway.Task{}, &gateway.NetworkError{Op: gateway.OpCreate, Err: f.CreateTaskErr}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := gateway.Task{ID: strconv.Itoa(f.nextID), Title: title}
	f.tasks = append(f.tasks, t)
	return t, nil
}
