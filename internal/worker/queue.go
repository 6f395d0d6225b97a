// Package worker runs follow-up work after a market transaction commits:
// repricing an issuer, distributing an earning event. Tasks are keyed; a key
// that is already waiting is not queued twice, and failed tasks are retried
// with exponential backoff.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"creatorx/internal/logger"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned when enqueueing after Close.
var ErrQueueClosed = errors.New("worker: queue closed")

// ErrQueueFull is returned when the buffer has no room.
var ErrQueueFull = errors.New("worker: queue full")

// Task is one unit of follow-up work.
type Task struct {
	// Key identifies the task for deduplication, e.g. "reprice:<issuerID>".
	Key string
	// Name is a short label for logs.
	Name string
	Run  func(ctx context.Context) error
	// OnGiveUp, if set, is called once the task has exhausted its attempts.
	OnGiveUp func(err error)
}

// Dispatcher accepts follow-up tasks. Enqueue never blocks. A nil error with
// queued == false means an identical key was already waiting.
type Dispatcher interface {
	Enqueue(task Task) (queued bool, err error)
}

// Config tunes a Queue.
type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		QueueSize:   1024,
		MaxAttempts: 5,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  30 * time.Second,
	}
}

// Stats are cumulative queue counters.
type Stats struct {
	Enqueued   int64 `json:"enqueued"`
	Deduped    int64 `json:"deduped"`
	Dropped    int64 `json:"dropped"`
	Succeeded  int64 `json:"succeeded"`
	Retried    int64 `json:"retried"`
	GaveUp     int64 `json:"gave_up"`
	InFlight   int64 `json:"in_flight"`
	QueueDepth int   `json:"queue_depth"`
}

// Queue is a bounded, keyed, retrying task queue backed by a worker pool.
type Queue struct {
	cfg   Config
	tasks chan Task
	log   *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pending  map[string]struct{}
	closed   bool
	inflight int64
	idle     *sync.Cond

	workers sync.WaitGroup

	enqueued, deduped, dropped, succeeded, retried, gaveUp atomic.Int64
}

// NewQueue starts cfg.Workers goroutines consuming the queue.
func NewQueue(cfg Config) *Queue {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = cfg.BaseBackoff * 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		cfg:     cfg,
		tasks:   make(chan Task, cfg.QueueSize),
		log:     logger.Named("worker"),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]struct{}),
	}
	q.idle = sync.NewCond(&q.mu)

	for i := 0; i < cfg.Workers; i++ {
		q.workers.Add(1)
		go q.loop()
	}
	return q
}

// Enqueue implements Dispatcher.
func (q *Queue) Enqueue(task Task) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, ErrQueueClosed
	}
	if task.Key != "" {
		if _, waiting := q.pending[task.Key]; waiting {
			q.deduped.Add(1)
			return false, nil
		}
	}

	select {
	case q.tasks <- task:
	default:
		q.dropped.Add(1)
		q.log.Warnw("task dropped, queue full", "key", task.Key, "name", task.Name)
		return false, ErrQueueFull
	}

	if task.Key != "" {
		q.pending[task.Key] = struct{}{}
	}
	q.inflight++
	q.enqueued.Add(1)
	return true, nil
}

// Wait blocks until every accepted task has finished, including retries.
func (q *Queue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.inflight > 0 {
		q.idle.Wait()
	}
}

// Close stops accepting tasks, lets the workers drain what is buffered, and
// waits for them. Backoff sleeps are cut short by ctx.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

// Stats returns a snapshot of the counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	inflight := q.inflight
	q.mu.Unlock()
	return Stats{
		Enqueued:   q.enqueued.Load(),
		Deduped:    q.deduped.Load(),
		Dropped:    q.dropped.Load(),
		Succeeded:  q.succeeded.Load(),
		Retried:    q.retried.Load(),
		GaveUp:     q.gaveUp.Load(),
		InFlight:   inflight,
		QueueDepth: len(q.tasks),
	}
}

func (q *Queue) loop() {
	defer q.workers.Done()
	for task := range q.tasks {
		q.mu.Lock()
		delete(q.pending, task.Key)
		q.mu.Unlock()

		q.execute(task)

		q.mu.Lock()
		q.inflight--
		if q.inflight == 0 {
			q.idle.Broadcast()
		}
		q.mu.Unlock()
	}
}

func (q *Queue) execute(task Task) {
	var err error
attempts:
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		err = q.runOnce(task)
		if err == nil {
			q.succeeded.Add(1)
			return
		}
		if attempt == q.cfg.MaxAttempts {
			break
		}

		q.retried.Add(1)
		wait := q.backoff(attempt)
		q.log.Warnw("task failed, retrying",
			"key", task.Key,
			"name", task.Name,
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
		select {
		case <-time.After(wait):
		case <-q.ctx.Done():
			break attempts
		}
	}

	q.gaveUp.Add(1)
	q.log.Errorw("task gave up", "key", task.Key, "name", task.Name, "error", err)
	if task.OnGiveUp != nil {
		task.OnGiveUp(err)
	}
}

func (q *Queue) runOnce(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorw("task panicked", "key", task.Key, "name", task.Name, "panic", r)
			err = errors.New("worker: task panicked")
		}
	}()
	return task.Run(q.ctx)
}

// backoff returns BaseBackoff × 2^(attempt−1), capped at MaxBackoff.
func (q *Queue) backoff(attempt int) time.Duration {
	d := q.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= q.cfg.MaxBackoff {
			return q.cfg.MaxBackoff
		}
	}
	return d
}
