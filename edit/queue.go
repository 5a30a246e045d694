// Package edit applies destructive edits to a package store, one at a time.
package edit

import (
	"context"
	"sync"

	"github.com/upkedit/upkedit/errors"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned for tasks submitted after a queue was closed.
var ErrClosed = errors.New("edit queue closed")

// Task is a unit of work run by a queue.
type Task func(ctx context.Context) error

type job struct {
	task   Task
	result chan error
}

// Queue runs tasks on a single worker in submission order. A failing task does
// not affect later tasks.
type Queue struct {
	ctx   context.Context
	group *errgroup.Group
	jobs  chan job

	mu     sync.Mutex
	closed bool
}

// NewQueue starts a queue that holds up to size pending tasks before Submit
// blocks. When ctx is done, pending tasks fail with its error.
func NewQueue(ctx context.Context, size int) *Queue {
	group, ctx := errgroup.WithContext(ctx)
	q := &Queue{
		ctx:   ctx,
		group: group,
		jobs:  make(chan job, size),
	}
	group.Go(q.run)
	return q
}

func (q *Queue) run() error {
	for j := range q.jobs {
		if err := q.ctx.Err(); err != nil {
			j.result <- err
			continue
		}
		j.result <- j.task(q.ctx)
	}
	return nil
}

// Submit adds a task to the queue. The returned channel receives the result of
// the task.
func (q *Queue) Submit(task Task) <-chan error {
	result := make(chan error, 1)
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		result <- ErrClosed
		return result
	}
	q.jobs <- job{task: task, result: result}
	return result
}

// Do submits a task and waits for its result.
func (q *Queue) Do(task Task) error {
	return <-q.Submit(task)
}

// Close stops accepting tasks and waits for pending tasks to finish.
func (q *Queue) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	return q.group.Wait()
}
