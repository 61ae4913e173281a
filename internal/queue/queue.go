// Package queue implements the three logical durable FIFO queues (command,
// inbound, outbound) Tasks travel over between the scheduler and workers
// (spec §5). Grounded on the Redis client usage pattern in the pack's
// cache.RedisCache (connection options, timeouts, JSON payload encoding),
// adapted from a key-value cache into a list-backed queue, and on the
// reserve-then-ack idiom go-redis documents for BRPOPLPUSH: a dequeue moves
// the payload atomically from the queue list to a per-queue "processing"
// list, and only Ack removes it there, so a worker that crashes between
// dequeue and ack leaves its Task recoverable by the next sweep instead of
// losing it — the durable at-least-once delivery spec §5 requires.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sonicat/sonicat/internal/task"
)

// Delivery is a dequeued Task paired with the raw payload Ack needs to
// remove it from the processing list.
type Delivery struct {
	Task *task.Task
	raw  string
}

// Queuer is one of the three logical queues for a single worker role. The
// interface lets AppRunner (internal/worker) be exercised against an
// in-memory fake in tests, without a live Redis instance.
type Queuer interface {
	Enqueue(ctx context.Context, t *task.Task) error
	Dequeue(ctx context.Context) (*Delivery, error)
	DequeueTimeout(ctx context.Context, timeout time.Duration) (*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
	Sweep(ctx context.Context) (int, error)
}

// Registry names the three queues for one worker role (or the scheduler,
// whose role name is "tasks"), plus lookup of an arbitrary other role's
// inbound queue for routing.
type Registry interface {
	Command() Queuer
	Inbound() Queuer
	Outbound() Queuer
	Named(target string) Queuer
}

// redisQueue is the Queuer implementation backed by Redis lists.
type redisQueue struct {
	client     *redis.Client
	name       string // e.g. "sonicat:librosa:inbound"
	processing string // "<name>:processing"
}

// Client is the Registry implementation backed by a single Redis
// connection.
type Client struct {
	redis *redis.Client
	role  string
}

// NewClient connects to addr and scopes queue names to role.
func NewClient(addr, role string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  0, // blocking pops (BRPOPLPUSH) wait indefinitely
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("queue: redis connection failed: %w", err)
	}
	return &Client{redis: rdb, role: role}, nil
}

// Command, Inbound, and Outbound return the three queues AppRunner's
// next_task/route_task operate on (spec §4.2).
func (c *Client) Command() Queuer { return c.named("command") }
func (c *Client) Inbound() Queuer { return c.named("inbound") }
func (c *Client) Outbound() Queuer { return c.named("outbound") }

// Named returns an arbitrary queue by name, for route_target targets that
// name another worker's inbound queue directly (spec §4.3).
func (c *Client) Named(target string) Queuer {
	q := &redisQueue{client: c.redis, name: fmt.Sprintf("sonicat:%s:inbound", target)}
	q.processing = q.name + ":processing"
	return q
}

func (c *Client) named(role string) Queuer {
	q := &redisQueue{client: c.redis, name: fmt.Sprintf("sonicat:%s:%s", c.role, role)}
	q.processing = q.name + ":processing"
	return q
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error { return c.redis.Close() }

// Enqueue appends t to the back of the queue (LPUSH, so BRPOPLPUSH pops in
// FIFO order).
func (q *redisQueue) Enqueue(ctx context.Context, t *task.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// Dequeue blocks until a Task is available or ctx is cancelled, moving it
// into the queue's processing list. Callers must Ack the returned Delivery
// once handled. A nil Delivery with a nil error means ctx was cancelled
// with no Task available (suspension point (a), spec §5).
func (q *redisQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	return q.DequeueTimeout(ctx, 0)
}

// DequeueTimeout is Dequeue bounded by timeout (0 = block indefinitely).
// AppRunner's next_task uses a short timeout on the command queue before
// falling back to an unbounded wait on inbound (spec §4.2).
func (q *redisQueue) DequeueTimeout(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	data, err := q.client.BRPopLPush(ctx, q.name, q.processing, timeout).Result()
	if err == redis.Nil || err == context.Canceled || err == context.DeadlineExceeded {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	var t task.Task
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &Delivery{Task: &t, raw: data}, nil
}

// Ack removes d's raw payload from the processing list, completing the
// reserve-then-ack handoff.
func (q *redisQueue) Ack(ctx context.Context, d *Delivery) error {
	return q.client.LRem(ctx, q.processing, 1, d.raw).Err()
}

// Sweep requeues every entry still sitting in the processing list back onto
// the main queue. Called once at worker startup: any Task a previous
// process dequeued but crashed before acking is rediscovered here rather
// than being lost (spec §5 restart semantics).
func (q *redisQueue) Sweep(ctx context.Context) (int, error) {
	n := 0
	for {
		moved, err := q.client.RPopLPush(ctx, q.processing, q.name).Result()
		if err == redis.Nil {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("sweep: %w", err)
		}
		_ = moved
		n++
	}
}
