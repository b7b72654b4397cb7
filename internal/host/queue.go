package host

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed means the queue was stopped before the call ran
var ErrQueueClosed = errors.New("host queue closed")

// Queue runs submitted calls one at a time on its own goroutine.
// Each call is a single round trip: submit, then wait for its one reply.
type Queue struct {
	jobs chan func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewQueue creates a queue holding up to capacity pending calls
func NewQueue(capacity int) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		jobs:   make(chan func(), capacity),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins consuming calls. The queue stops when ctx is done or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	q.once.Do(func() {
		q.wg.Add(1)
		go q.loop(ctx)
	})
}

// Stop stops the consumer and waits for the running call to return
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}

func (q *Queue) loop(ctx context.Context) {
	defer q.wg.Done()
	defer q.cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			job()
		}
	}
}

// Do runs fn on the queue goroutine and returns its error
func (q *Queue) Do(ctx context.Context, fn func() error) error {
	_, err := Call(ctx, q, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

type reply[T any] struct {
	value T
	err   error
}

// Call runs fn on the queue goroutine and returns its result
func Call[T any](ctx context.Context, q *Queue, fn func() (T, error)) (T, error) {
	var zero T
	replies := make(chan reply[T], 1)
	job := func() {
		v, err := fn()
		replies <- reply[T]{value: v, err: err}
	}

	select {
	case q.jobs <- job:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-q.ctx.Done():
		return zero, ErrQueueClosed
	}

	select {
	case r := <-replies:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-q.ctx.Done():
		// The job may still have run just before the stop
		select {
		case r := <-replies:
			return r.value, r.err
		default:
			return zero, ErrQueueClosed
		}
	}
}
