package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotRunning is returned when submitting to a queue that is not started or already stopped.
var ErrNotRunning = errors.New("queue not running")

// Task is a unit of work carried through the queue.
type Task[T any] struct {
	ID       string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// Handler processes one task. Returning an error schedules a retry.
type Handler[T any] func(context.Context, Task[T]) error

// Options tune the worker pool.
type Options struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	Backoff     time.Duration
	Logger      *zap.Logger
}

// Queue dispatches tasks to a fixed pool of goroutines and retries failures
// with exponential backoff.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	opts    Options

	// OnGiveUp is invoked once a task has exhausted its attempts.
	OnGiveUp func(Task[T], error)

	tasks   chan Task[T]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New builds a queue. Zero options fall back to a single worker and three attempts.
func New[T any](name string, handler Handler[T], opts Options) *Queue[T] {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = opts.Workers * 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Queue[T]{
		name:    name,
		handler: handler,
		opts:    opts,
		tasks:   make(chan Task[T], opts.Buffer),
	}
}

// Start launches the workers. Subsequent calls are no-ops.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.running = true
	q.opts.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.opts.Workers))
}

// Stop cancels outstanding work and waits for workers and pending retries to exit.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.retries.Wait()
	q.opts.Logger.Info("queue stopped", zap.String("queue", q.name))
}

// Submit enqueues a task, blocking while the buffer is full or until ctx is done.
func (q *Queue[T]) Submit(ctx context.Context, task Task[T]) error {
	q.mu.Lock()
	running, qctx := q.running, q.ctx
	q.mu.Unlock()
	if !running {
		return fmt.Errorf("%s: %w", q.name, ErrNotRunning)
	}
	if task.Enqueued.IsZero() {
		task.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-qctx.Done():
		return fmt.Errorf("%s: %w", q.name, ErrNotRunning)
	case q.tasks <- task:
		return nil
	}
}

func (q *Queue[T]) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			task.Attempt++
			if err := q.handler(q.ctx, task); err != nil {
				q.retry(task, err)
			}
		}
	}
}

func (q *Queue[T]) retry(task Task[T], err error) {
	log := q.opts.Logger.With(zap.String("queue", q.name), zap.String("task_id", task.ID), zap.Int("attempt", task.Attempt))
	if task.Attempt >= q.opts.MaxAttempts {
		log.Error("task gave up", zap.Error(err))
		if q.OnGiveUp != nil {
			q.OnGiveUp(task, err)
		}
		return
	}
	delay := q.opts.Backoff << (task.Attempt - 1)
	log.Warn("task failed, retrying", zap.Duration("delay", delay), zap.Error(err))

	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			select {
			case q.tasks <- task:
			case <-q.ctx.Done():
			}
		}
	}()
}
