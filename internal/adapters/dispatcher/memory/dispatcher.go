// Package memory provides a recording JobDispatcher for tests.
package memory

import (
	"context"
	"sync"

	"github.com/openballot/api/internal/core/domain"
)

type Dispatcher struct {
	mu         sync.Mutex
	dispatched []domain.Vote
	failWith   error
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Dispatch(_ context.Context, vote *domain.Vote) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failWith != nil {
		return d.failWith
	}
	d.dispatched = append(d.dispatched, *vote)
	return nil
}

// Dispatched returns a copy of every vote handed to the dispatcher so
// far, in order.
func (d *Dispatcher) Dispatched() []domain.Vote {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]domain.Vote, len(d.dispatched))
	copy(out, d.dispatched)
	return out
}

// FailWith makes every following Dispatch call return err. Pass nil to
// restore normal behavior.
func (d *Dispatcher) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWith = err
}
