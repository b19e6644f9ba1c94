package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// QueueStats is a snapshot of the queue counters
type QueueStats struct {
	Active    int `json:"active"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Peak      int `json:"peak"` // highest Active observed
}

type jobResult struct {
	value any
	err   error
}

type job struct {
	ctx  context.Context
	run  func(context.Context) (any, error)
	done chan jobResult
}

// Queue bounds outbound request concurrency and spacing.
// Tasks start in FIFO order; every tick starts at most maxConcurrent-active of them.
type Queue struct {
	maxConcurrent int
	interval      time.Duration

	mu        sync.Mutex
	pending   []*job
	active    int
	completed int
	peak      int
	closed    bool

	startOnce sync.Once
	stop      chan struct{}
	stopped   chan struct{}
}

// NewQueue creates a queue. Call Start, or let the first Enqueue start it.
func NewQueue(maxConcurrent int, interval time.Duration) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &Queue{
		maxConcurrent: maxConcurrent,
		interval:      interval,
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
}

// Start runs the dispatch loop until ctx is done or Close is called
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		go q.loop(ctx)
	})
}

// Close stops the dispatch loop and fails every pending task with ErrQueueClosed.
// Tasks already running finish normally.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := q.pending
	q.pending = nil
	q.completed += len(pending)
	q.mu.Unlock()

	close(q.stop)
	for _, j := range pending {
		j.done <- jobResult{err: ErrQueueClosed}
	}

	// Wait for the loop if it was ever started
	started := true
	q.startOnce.Do(func() { started = false })
	if started {
		<-q.stopped
	}
}

// Stats returns the current counters
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Active:    q.active,
		Pending:   len(q.pending),
		Completed: q.completed,
		Peak:      q.peak,
	}
}

// Enqueue submits task and blocks until it has run, was skipped or ctx is done.
// A task whose context is already cancelled when dequeued is not run.
// A panicking task is reported as an error.
func Enqueue[T any](ctx context.Context, q *Queue, task func(context.Context) (T, error)) (T, error) {
	var zero T

	j := &job{
		ctx: ctx,
		run: func(ctx context.Context) (any, error) {
			return task(ctx)
		},
		done: make(chan jobResult, 1),
	}
	if err := q.push(j); err != nil {
		return zero, err
	}

	select {
	case r := <-j.done:
		if r.err != nil {
			return zero, r.err
		}
		v, _ := r.value.(T)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (q *Queue) push(j *job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(q.pending, j)
	q.mu.Unlock()

	q.Start(context.Background())
	return nil
}

func (q *Queue) loop(ctx context.Context) {
	defer close(q.stopped)

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		case <-ticker.C:
			q.dispatch()
		}
	}
}

func (q *Queue) dispatch() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.active < q.maxConcurrent && len(q.pending) > 0 {
		j := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]

		if err := j.ctx.Err(); err != nil {
			q.completed++
			j.done <- jobResult{err: err}
			continue
		}

		q.active++
		if q.active > q.peak {
			q.peak = q.active
		}
		go q.run(j)
	}
}

func (q *Queue) run(j *job) {
	var res jobResult
	defer func() {
		if r := recover(); r != nil {
			res = jobResult{err: fmt.Errorf("task panicked: %v", r)}
		}

		q.mu.Lock()
		q.active--
		q.completed++
		q.mu.Unlock()

		j.done <- res
	}()

	v, err := j.run(j.ctx)
	res = jobResult{value: v, err: err}
}
