package worker

import (
	"context"

	apperrors "github.com/mihmosh/whisper-flash/errors"
)

// Queue is a bounded FIFO task queue. Enqueue never blocks: when the buffer
// is full the caller gets a queue-full error and the client is expected to
// back off or reroute the chunk to another worker.
type Queue struct {
	tasks    chan *Task
	capacity int
}

// NewQueue creates a queue holding at most capacity tasks.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 10
	}
	return &Queue{
		tasks:    make(chan *Task, capacity),
		capacity: capacity,
	}
}

// Enqueue adds a task or returns an AppError with ErrCodeQueueFull.
func (q *Queue) Enqueue(task *Task) error {
	select {
	case q.tasks <- task:
		return nil
	default:
		return apperrors.QueueFull(q.capacity)
	}
}

// Dequeue blocks until a task is available or ctx is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (*Task, error) {
	select {
	case task := <-q.tasks:
		return task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of tasks currently waiting.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return q.capacity
}
