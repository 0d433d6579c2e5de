package taskq_test

import (
	"sync"
	"testing"

	"waxwing/internal/util/taskq"
)

func TestRunsTasksInOrder(t *testing.T) {
	q := taskq.New(16)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		q.Enqueue(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	q.Close()

	if len(got) != 10 {
		t.Fatalf("ran %d tasks, want 10", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task order %v", got)
		}
	}
}

func TestCloseDrainsPending(t *testing.T) {
	q := taskq.New(64)

	var mu sync.Mutex
	n := 0
	for i := 0; i < 50; i++ {
		q.Enqueue(func() {
			mu.Lock()
			n++
			mu.Unlock()
		})
	}
	q.Close()
	if n != 50 {
		t.Fatalf("drained %d tasks, want 50", n)
	}
}

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	q := taskq.New(4)
	q.Close()

	ran := false
	q.Enqueue(func() { ran = true })
	q.Close() // second Close is a no-op

	if ran {
		t.Fatal("task ran after Close")
	}
}
