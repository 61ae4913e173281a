package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sonicat/sonicat/internal/task"
)

// Fake is an in-memory Registry implementing Queuer over plain slices,
// guarded by a mutex. It exists so internal/worker's AppRunner harness can
// be exercised in tests without a live Redis instance.
type Fake struct {
	mu         sync.Mutex
	queues     map[string][]*task.Task
	processing map[string][]*task.Task
	notify     map[string]chan struct{}
}

// NewFake returns an empty Fake registry.
func NewFake() *Fake {
	return &Fake{
		queues:     map[string][]*task.Task{},
		processing: map[string][]*task.Task{},
		notify:     map[string]chan struct{}{},
	}
}

func (f *Fake) Command() Queuer        { return &fakeQueue{f: f, name: "command"} }
func (f *Fake) Inbound() Queuer        { return &fakeQueue{f: f, name: "inbound"} }
func (f *Fake) Outbound() Queuer       { return &fakeQueue{f: f, name: "outbound"} }
func (f *Fake) Named(target string) Queuer { return &fakeQueue{f: f, name: target} }

// Len returns how many Tasks currently sit in the named queue (for test
// assertions).
func (f *Fake) Len(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queues[name])
}

type fakeQueue struct {
	f    *Fake
	name string
}

func (q *fakeQueue) Enqueue(ctx context.Context, t *task.Task) error {
	f := q.f
	f.mu.Lock()
	f.queues[q.name] = append(f.queues[q.name], t)
	ch := f.notify[q.name]
	f.mu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	return q.DequeueTimeout(ctx, 0)
}

func (q *fakeQueue) DequeueTimeout(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	deadline := time.Now().Add(timeout)
	for {
		if d := q.tryPop(); d != nil {
			return d, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		default:
		}
		if timeout > 0 && time.Now().After(deadline) {
			return nil, nil
		}
		time.Sleep(5 * time.Millisecond)
		if timeout == 0 && ctx.Err() != nil {
			return nil, nil
		}
	}
}

func (q *fakeQueue) tryPop() *Delivery {
	f := q.f
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.queues[q.name]
	if len(items) == 0 {
		return nil
	}
	t := items[0]
	f.queues[q.name] = items[1:]
	f.processing[q.name] = append(f.processing[q.name], t)
	return &Delivery{Task: t}
}

func (q *fakeQueue) Ack(ctx context.Context, d *Delivery) error {
	f := q.f
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.processing[q.name]
	for i, t := range items {
		if t == d.Task {
			f.processing[q.name] = append(items[:i], items[i+1:]...)
			break
		}
	}
	return nil
}

func (q *fakeQueue) Sweep(ctx context.Context) (int, error) {
	f := q.f
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.processing[q.name]
	f.queues[q.name] = append(items, f.queues[q.name]...)
	f.processing[q.name] = nil
	return len(items), nil
}
