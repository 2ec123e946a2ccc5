package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/huematch/pkg/logger"
)

func init() {
	logger.Init()
}

func report(id string) Event {
	return Event{ID: id, Method: "linear", MatchedName: "Bright Red", Code: "R-01", Hex: "#dc3c3c"}
}

func TestInMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !q.Enqueue(ctx, report("r1")) {
		t.Fatal("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	select {
	case got := <-q.Dequeue(ctx):
		if got.ID != "r1" || got.MatchedName != "Bright Red" {
			t.Errorf("unexpected report %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for report")
	}
}

func TestInMemoryQueue_DropsWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, report("a")) || !q.Enqueue(ctx, report("b")) {
		t.Fatal("expected first two enqueues to succeed")
	}
	if q.Enqueue(ctx, report("c")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, report("x")) {
		t.Error("expected enqueue to fail with cancelled context")
	}
}

func TestInMemoryQueue_InvalidCapacityKeepsDefault(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(-5))
	if q.capacity != defaultQueueCapacity {
		t.Errorf("expected capacity %d, got %d", defaultQueueCapacity, q.capacity)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(50))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers, perProducer = 8, 50

	var seen sync.Map
	var consumed sync.WaitGroup
	consumed.Add(producers * perProducer)
	for i := 0; i < 4; i++ {
		go func() {
			for e := range q.Dequeue(ctx) {
				if _, dup := seen.LoadOrStore(e.ID, struct{}{}); !dup {
					consumed.Done()
				}
			}
		}()
	}

	var produced sync.WaitGroup
	for p := 0; p < producers; p++ {
		produced.Add(1)
		go func(id int) {
			defer produced.Done()
			for j := 0; j < perProducer; j++ {
				for !q.Enqueue(ctx, report(fmt.Sprintf("r%d_%d", id, j))) {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}
	produced.Wait()

	done := make(chan struct{})
	go func() {
		consumed.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not every report was consumed")
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	q.Enqueue(ctx, report("a"))
	q.Enqueue(ctx, report("b"))

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, report("c")) {
		t.Error("expected enqueue to fail after closing")
	}

	var ids []string
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
					t.Errorf("expected [a b] drained, got %v", ids)
				}
				if err := q.Close(); err != nil {
					t.Errorf("second close: %v", err)
				}
				return
			}
			ids = append(ids, e.ID)
		case <-timeout:
			t.Fatal("dequeue channel was not closed")
		}
	}
}
