package admission

import "context"

type slotPool struct {
	sem chan struct{}
}

func newSlotPool(max int) *slotPool {
	return &slotPool{sem: make(chan struct{}, max)}
}

// acquire blocks until a slot frees up or ctx is done.
func (p *slotPool) acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// tryAcquire takes a free slot if there is one.
func (p *slotPool) tryAcquire() (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	default:
		return nil, false
	}
}

func (p *slotPool) inFlight() int {
	return len(p.sem)
}
