package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const queueBuffer = 1024

// Stats counts task outcomes.
type Stats struct {
	Dispatched int64
	Succeeded  int64
	Retried    int64
	Failed     int64
	// Dropped counts tasks still queued or scheduled when the dispatcher closed.
	Dropped int64
}

// Local is an in-process dispatcher with one buffered channel and a worker pool per queue.
// A task whose handler errors or panics is redelivered until MaxAttempts.
type Local struct {
	workers     int
	maxAttempts int
	retryDelay  time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
	queues   map[string]chan Task
	closed   bool

	// sendMu orders sends against Close so no task lands in a queue after it is drained.
	sendMu     sync.RWMutex
	sendClosed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pending    atomic.Int64
	dispatched atomic.Int64
	succeeded  atomic.Int64
	retried    atomic.Int64
	failed     atomic.Int64
	dropped    atomic.Int64
}

// NewLocal creates a dispatcher running workers goroutines per queue.
func NewLocal(workers, maxAttempts int) *Local {
	if workers <= 0 {
		workers = 4
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Local{
		workers:     workers,
		maxAttempts: maxAttempts,
		retryDelay:  100 * time.Millisecond,
		handlers:    make(map[string]Handler),
		queues:      make(map[string]chan Task),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetRetryDelay sets the base redelivery delay, doubled per attempt.
func (l *Local) SetRetryDelay(d time.Duration) {
	l.retryDelay = d
}

// Register binds a handler to a task name.
func (l *Local) Register(name string, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[name] = h
}

// Dispatch enqueues a task, or schedules it when task.Delay is set.
// It blocks while the queue is full.
func (l *Local) Dispatch(ctx context.Context, task Task) error {
	if task.Name == "" || task.Queue == "" {
		return fmt.Errorf("dispatch: task name and queue are required")
	}

	l.mu.RLock()
	closed := l.closed
	_, ok := l.handlers[task.Name]
	l.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if !ok {
		return fmt.Errorf("dispatch %s: %w", task.Name, ErrNoHandler)
	}

	ch := l.queue(task.Queue)
	l.pending.Add(1)
	l.dispatched.Add(1)

	if task.Delay > 0 {
		time.AfterFunc(task.Delay, func() { l.requeue(ch, task) })
		return nil
	}
	if err := l.enqueue(ctx, ch, task); err != nil {
		l.pending.Add(-1)
		return fmt.Errorf("dispatch %s: %w", task.Name, err)
	}
	return nil
}

// Wait blocks until every dispatched task has finished or exhausted its attempts.
func (l *Local) Wait(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if l.pending.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops all workers and cancels the context of running handlers.
// Tasks still queued or scheduled are not delivered; they are logged and
// counted in Stats().Dropped, and Wait returns once they are accounted for.
// Call Wait first to let everything finish.
func (l *Local) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.sendMu.Lock()
	l.sendClosed = true
	l.sendMu.Unlock()
	l.wg.Wait()

	l.mu.RLock()
	defer l.mu.RUnlock()
	for name, ch := range l.queues {
		for drained := false; !drained; {
			select {
			case task := <-ch:
				l.drop(name, task)
			default:
				drained = true
			}
		}
	}
}

// Stats returns a snapshot of outcome counters.
func (l *Local) Stats() Stats {
	return Stats{
		Dispatched: l.dispatched.Load(),
		Succeeded:  l.succeeded.Load(),
		Retried:    l.retried.Load(),
		Failed:     l.failed.Load(),
	}
}

// queue returns the channel for name, starting its workers on first use.
func (l *Local) queue(name string) chan Task {
	l.mu.RLock()
	ch, ok := l.queues[name]
	l.mu.RUnlock()
	if ok {
		return ch
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if ch, ok := l.queues[name]; ok {
		return ch
	}
	ch = make(chan Task, queueBuffer)
	l.queues[name] = ch
	for i := 0; i < l.workers; i++ {
		l.wg.Add(1)
		go l.worker(name, ch)
	}
	slog.Debug("queue started", "queue", name, "workers", l.workers)
	return ch
}

func (l *Local) enqueue(ctx context.Context, ch chan Task, task Task) error {
	l.sendMu.RLock()
	defer l.sendMu.RUnlock()
	if l.sendClosed {
		return ErrClosed
	}
	select {
	case ch <- task:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-l.ctx.Done():
		return ErrClosed
	}
}

// requeue delivers a delayed or redelivered task, dropping it after Close.
func (l *Local) requeue(ch chan Task, task Task) {
	if err := l.enqueue(l.ctx, ch, task); err != nil {
		l.drop(task.Queue, task)
	}
}

func (l *Local) drop(queue string, task Task) {
	l.dropped.Add(1)
	l.pending.Add(-1)
	slog.Warn("task dropped on close",
		"task_id", task.ID, "task", task.Name, "queue", queue, "attempt", task.Attempt)
}

func (l *Local) worker(queue string, ch <-chan Task) {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case task := <-ch:
			if l.ctx.Err() != nil {
				l.drop(queue, task)
				return
			}
			l.run(queue, task)
		}
	}
}

func (l *Local) run(queue string, task Task) {
	l.mu.RLock()
	h := l.handlers[task.Name]
	l.mu.RUnlock()

	task.Attempt++
	err := l.invoke(h, task)
	if err == nil {
		l.succeeded.Add(1)
		l.pending.Add(-1)
		return
	}

	if task.Attempt >= l.maxAttempts {
		l.failed.Add(1)
		l.pending.Add(-1)
		slog.Error("task failed permanently",
			"task_id", task.ID, "task", task.Name, "queue", queue, "attempts", task.Attempt, "error", err)
		return
	}

	l.retried.Add(1)
	delay := l.retryDelay << (task.Attempt - 1)
	slog.Warn("task failed, redelivering",
		"task_id", task.ID, "task", task.Name, "queue", queue, "attempt", task.Attempt, "retry_in", delay, "error", err)

	l.mu.RLock()
	ch := l.queues[queue]
	l.mu.RUnlock()
	time.AfterFunc(delay, func() { l.requeue(ch, task) })
}

// invoke runs the handler, converting a panic into an error.
func (l *Local) invoke(h Handler, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("task handler panicked", "task_id", task.ID, "task", task.Name, "panic", r)
			err = fmt.Errorf("internal panic: %v", r)
		}
	}()
	if h == nil {
		return fmt.Errorf("run %s: %w", task.Name, ErrNoHandler)
	}
	return h(l.ctx, task)
}
