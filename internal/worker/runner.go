// Package worker implements AppRunner (spec §4.2): the generic harness every
// worker process runs, and the Worker contract (spec §4.4) every concrete
// App implements. Grounded on the teacher's supervisor in
// internal/task/manager.go — an event pump feeding a bounded worker-goroutine
// pool, stopped cooperatively via context cancellation plus sync.WaitGroup —
// generalized from "dequeue a watched file path, run a fixed pipeline" to
// "dequeue a Task, hand it to a Worker, route the result".
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sonicat/sonicat/internal/queue"
	"github.com/sonicat/sonicat/internal/router"
	"github.com/sonicat/sonicat/internal/task"
)

// Worker is the capability set every App implements (spec §4.4 and the
// flattening of the original's per-worker subclass hierarchy noted in
// §9: variants are data/config, not types).
type Worker interface {
	// RunTask mutates only task.Results and task.Result; it never returns a
	// Go error — failure is recorded on the Task itself via Fail (spec
	// §4.2: "If run_task raises or returns success=false, the result is
	// still routed").
	RunTask(ctx context.Context, t *task.Task) *task.Task

	// LoadCatalogReplicas opens the read-only store snapshots this Worker
	// consults. Called once at startup before the first cycle.
	LoadCatalogReplicas(ctx context.Context) error
}

// commandPollTimeout bounds how long next_task waits on the command queue
// before falling back to inbound, so a Task on the command queue is never
// starved by a busy inbound queue.
const commandPollTimeout = 50 * time.Millisecond

// Runner is one AppRunner instance: the event loop for a single worker
// process.
type Runner struct {
	AppName string
	AppType string

	Worker  Worker
	Queues  queue.Registry
	Pending router.PendingQueryer
	Log     *zap.SugaredLogger

	// Concurrency is how many cycles run concurrently. Spec §5 describes a
	// cooperative single-threaded event loop per process; Concurrency > 1
	// generalizes that to a small worker pool the way the teacher's
	// supervisor does, while keeping shutdown() cooperative per goroutine.
	Concurrency int
}

// Run starts Concurrency goroutines, each looping next_task -> run_cycle
// until ctx is cancelled. Run blocks until every goroutine has finished its
// in-flight cycle and returned (cooperative shutdown, spec §4.2).
func (r *Runner) Run(ctx context.Context) error {
	if r.Concurrency <= 0 {
		r.Concurrency = 1
	}
	if err := r.Worker.LoadCatalogReplicas(ctx); err != nil {
		return err
	}

	if n, err := r.Queues.Inbound().Sweep(ctx); err != nil {
		r.Log.Warnw("inbound sweep failed", "worker", r.AppName, "error", err)
	} else if n > 0 {
		r.Log.Infow("requeued orphaned in-flight tasks", "worker", r.AppName, "count", n)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.Concurrency; i++ {
		id := i + 1
		g.Go(func() error {
			r.loop(gctx, id)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d, err := r.nextTask(ctx)
		if err != nil {
			r.Log.Errorw("next_task failed", "worker", r.AppName, "id", workerID, "error", err)
			continue
		}
		if d == nil {
			// Idle: ctx cancelled mid-wait, or command poll timed out with
			// nothing on inbound either — loop back and check ctx.Done().
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}
		r.runCycle(ctx, d)
	}
}

// nextTask dequeues from the command queue, falling back to inbound (spec
// §4.2). It returns the source queue alongside the delivery so runCycle
// knows which queue to Ack against.
func (r *Runner) nextTask(ctx context.Context) (*inflight, error) {
	d, err := r.Queues.Command().DequeueTimeout(ctx, commandPollTimeout)
	if err != nil {
		return nil, err
	}
	if d != nil {
		return &inflight{queue: r.Queues.Command(), delivery: d}, nil
	}
	select {
	case <-ctx.Done():
		return nil, nil
	default:
	}
	d, err = r.Queues.Inbound().Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	return &inflight{queue: r.Queues.Inbound(), delivery: d}, nil
}

type inflight struct {
	queue    queue.Queuer
	delivery *queue.Delivery
}

// runCycle is run_cycle() = route_task(app.run_task(next_task())). It never
// abandons a Task mid-commit: Ack happens only after the routed enqueue
// succeeds, so a crash between dequeue and ack simply leaves the Task for
// the next startup's Sweep.
func (r *Runner) runCycle(ctx context.Context, in *inflight) {
	t := in.delivery.Task
	result := r.Worker.RunTask(ctx, t)
	result.RouterAppName = r.AppName
	result.RouterAppType = r.AppType

	target, toEnqueue := router.Route(result, r.AppName, r.AppType, r.Pending)
	if target == "" {
		r.Log.Debugw("dropping task, no route target", "worker", r.AppName, "task_id", t.ID)
	} else {
		q := r.Queues.Named(target)
		if err := q.Enqueue(ctx, toEnqueue); err != nil {
			r.Log.Errorw("route enqueue failed", "worker", r.AppName, "task_id", t.ID, "target", target, "error", err)
			return
		}
	}

	if err := in.queue.Ack(ctx, in.delivery); err != nil {
		r.Log.Errorw("ack failed", "worker", r.AppName, "task_id", t.ID, "error", err)
	}
}
