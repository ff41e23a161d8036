package store

import "context"

// Pending tracks the create request dispatched by AddTask.
type Pending struct {
	key  string
	done chan struct{}
	err  error
}

func newPending(key string) *Pending {
	return &Pending{key: key, done: make(chan struct{})}
}

// Key is the key of the entry appended synchronously by AddTask.
func (p *Pending) Key() string { return p.key }

// Done is closed once the remote store answered (or the call failed) and
// the store applied the outcome.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns the create failure, if any. Only meaningful after Done is closed.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the outcome is applied or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}
