package workflow

import "context"

// Gate is a counting admission control bounding how many provider calls run
// simultaneously across a batch. It is injected into the Runner rather than
// shared as a package global so independent runs (and tests) can carry
// independent capacities.
//
// Waiters are admitted in arrival order as slots free. The provider enforces
// its own per-key rate limit; the gate keeps offered load under that limit so
// throttling responses stay rare instead of being the primary flow control.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate admitting at most capacity concurrent holders.
// Capacity values below 1 are raised to 1.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	<-g.slots
}

// Capacity returns the gate's admission bound.
func (g *Gate) Capacity() int {
	return cap(g.slots)
}

// Run acquires a slot, executes fn, and releases the slot, propagating fn's
// result unchanged.
func (g *Gate) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn(ctx)
}
