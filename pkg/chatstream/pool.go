package chatstream

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolSaturated is returned when the pool has no free slot and the
// caller asked not to wait. Admission control maps it to a backpressure
// response rather than queueing jobs unbounded.
var ErrPoolSaturated = errors.New("worker pool saturated")

var ErrPoolClosed = errors.New("worker pool closed")

// Pool is a bounded worker pool. Each submitted task occupies one slot for
// its whole duration; when all slots are busy, TrySubmit fails fast.
type Pool struct {
	slots chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		slots: make(chan struct{}, size),
	}
}

// TrySubmit runs task on its own goroutine if a slot is free, otherwise
// returns ErrPoolSaturated immediately.
func (p *Pool) TrySubmit(task func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}

	select {
	case p.slots <- struct{}{}:
	default:
		p.mu.Unlock()
		return ErrPoolSaturated
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer func() {
			<-p.slots
			p.wg.Done()
		}()
		task()
	}()
	return nil
}

// Submit blocks until a slot frees up or the context is cancelled.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	for {
		if err := p.TrySubmit(task); err == nil {
			return nil
		} else if errors.Is(err, ErrPoolClosed) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case p.slots <- struct{}{}:
			// Slot acquired while waiting; hand it straight to the task.
			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				<-p.slots
				return ErrPoolClosed
			}
			p.wg.Add(1)
			p.mu.Unlock()
			go func() {
				defer func() {
					<-p.slots
					p.wg.Done()
				}()
				task()
			}()
			return nil
		}
	}
}

// InFlight reports how many tasks currently hold a slot.
func (p *Pool) InFlight() int {
	return len(p.slots)
}

// Shutdown stops admission and waits for in-flight tasks, or gives up when
// the context expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
