package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/lmco/eurekastreams-sub009/internal/logging"
	"github.com/lmco/eurekastreams-sub009/internal/metrics"
	"github.com/sirupsen/logrus"
)

var ErrQueueClosed = errors.New("task queue closed")

var _ domain.TaskQueue = (*Queue)(nil)

// Runner executes one queued request.
type Runner interface {
	ExecuteRequest(ctx context.Context, req domain.UserActionRequest) error
}

// Queue is a bounded in-process task queue drained by a fixed pool of workers.
type Queue struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan domain.UserActionRequest
	wg     sync.WaitGroup
	log    *logrus.Entry
}

func NewQueue(size int, log logrus.FieldLogger) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		tasks: make(chan domain.UserActionRequest, size),
		log:   logging.Component(log, "queue"),
	}
}

// Enqueue never blocks. When the queue is full the remaining requests are dropped and
// ErrQueueFull is returned.
func (q *Queue) Enqueue(_ context.Context, requests ...domain.UserActionRequest) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	for i, req := range requests {
		select {
		case q.tasks <- req:
		default:
			for _, dropped := range requests[i:] {
				metrics.RecordDropped(dropped.ActionKey)
			}
			metrics.SetQueueDepth(len(q.tasks))
			return fmt.Errorf("%w: %d requests dropped starting at %s", domain.ErrQueueFull, len(requests)-i, req.ActionKey)
		}
	}
	metrics.SetQueueDepth(len(q.tasks))
	return nil
}

func (q *Queue) Len() int {
	return len(q.tasks)
}

// Start launches n workers. They run until Stop is called or ctx is canceled.
func (q *Queue) Start(ctx context.Context, runner Runner, n int) {
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go q.work(ctx, runner, i)
	}
	q.log.WithField("workers", n).Info("workers started")
}

func (q *Queue) work(ctx context.Context, runner Runner, id int) {
	defer q.wg.Done()
	log := q.log.WithField("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-q.tasks:
			if !ok {
				return
			}
			metrics.SetQueueDepth(len(q.tasks))
			q.run(ctx, runner, req, log)
		}
	}
}

func (q *Queue) run(ctx context.Context, runner Runner, req domain.UserActionRequest, log *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("action", req.ActionKey).Errorf("task panicked: %v", r)
		}
	}()
	start := time.Now()
	if err := runner.ExecuteRequest(ctx, req); err != nil {
		log.WithError(err).WithField("action", req.ActionKey).Warn("task failed")
		return
	}
	log.WithField("action", req.ActionKey).WithField("duration", time.Since(start)).Debug("task done")
}

// Stop refuses new requests and waits for the workers to drain what is queued.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.log.Info("workers stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop workers: %w", ctx.Err())
	}
}
