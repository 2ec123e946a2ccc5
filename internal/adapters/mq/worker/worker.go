// Package worker drains lookup reports from the queue into publishers.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/huematch/internal/adapters/mq/queue"
	"github.com/okian/huematch/pkg/logger"
	"github.com/okian/huematch/pkg/metrics"
)

const (
	defaultPublishTimeout = 2 * time.Second
	poolShutdownTimeout   = 10 * time.Second
)

// Event abstracts what workers read off the queue.
type Event = queue.Event

// Publisher delivers a report to an external sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Name() string
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker drains reports until its queue closes or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker fans every report out to each publisher.
type InMemoryWorker struct {
	queue          Queue
	publishers     []Publisher
	name           string
	publishTimeout time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, publishers []Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:          q,
		publishers:     publishers,
		name:           "worker",
		publishTimeout: defaultPublishTimeout,
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. Queued reports are drained after the queue
// closes; Shutdown or ctx stop it immediately.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Warn(ctx, "report not fully published", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for the loop to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent publishes one report to every sink. A failing sink does not
// stop delivery to the others.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var failed []string
	for _, p := range w.publishers {
		pctx, cancel := context.WithTimeout(ctx, w.publishTimeout)
		err := p.Publish(pctx, event)
		cancel()
		if err != nil {
			metrics.RecordPublishError(p.Name())
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "publish_error")
			w.logger.Error(ctx, "publish failed",
				logger.String("sink", p.Name()),
				logger.String("report_id", event.ID),
				logger.Error(err),
			)
			failed = append(failed, p.Name())
			continue
		}
		metrics.RecordPublish(p.Name())
	}
	if len(failed) > 0 {
		return fmt.Errorf("report %s: sinks %v failed", event.ID, failed)
	}
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	mu      sync.Mutex
	stopped bool

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. Counts below one become one;
// report delivery is light and ordering is easier to follow with a single
// drain.
func NewPool(workerCount int, q Queue, publishers []Publisher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, publishers, wopts...)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Shutdown closes the queue and lets the workers drain it. Workers still
// running when ctx (or the pool timeout) ends are stopped hard.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	p.stopped = true
	p.mu.Unlock()

	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}

	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("drain reports: %w", shutdownCtx.Err())
	}
	return nil
}
