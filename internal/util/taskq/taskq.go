// Package taskq provides a single-consumer queue of deferred tasks.
//
// A Queue decouples event producers from the goroutine that must run their
// side effects: producers enqueue closures and return immediately, and one
// worker goroutine runs them strictly in order. It exists for handlers that
// are triggered from inside another component's event delivery and must not
// run while that delivery is still on the stack.
package taskq

import "sync"

// Queue runs enqueued tasks one at a time on a dedicated goroutine.
type Queue struct {
	tasks chan func()

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// New starts a queue worker. size bounds the number of pending tasks before
// Enqueue blocks.
func New(size int) *Queue {
	q := &Queue{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for task := range q.tasks {
		task()
	}
}

// Enqueue schedules task after all previously enqueued tasks. Tasks enqueued
// after Close are dropped.
func (q *Queue) Enqueue(task func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.tasks <- task
}

// Close stops the worker after draining pending tasks and waits for it to
// exit. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	<-q.done
}
