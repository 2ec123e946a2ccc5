package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/huematch/internal/adapters/mq/queue"
	worker "github.com/okian/huematch/internal/adapters/mq/worker"
	logging "github.com/okian/huematch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	events chan queue.Event
	once   sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{events: make(chan queue.Event, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Event {
	return mq.events
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.events) })
	return nil
}

type mockPublisher struct {
	name string
	fail error
	hold chan struct{}

	mu  sync.Mutex
	ids []string
}

func (p *mockPublisher) Name() string { return p.name }

func (p *mockPublisher) Publish(ctx context.Context, e queue.Event) error { //nolint:gocritic // hugeParam: matches interface
	if p.hold != nil {
		select {
		case <-p.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.fail != nil {
		return p.fail
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, e.ID)
	return nil
}

func (p *mockPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker draining a queue into publishers", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		good := &mockPublisher{name: "log"}
		bad := &mockPublisher{name: "mqtt", fail: errors.New("broker down")}

		convey.Convey("When a report is queued", func() {
			w := worker.NewInMemoryWorker(q, []worker.Publisher{good}, worker.WithName("test-worker"))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			q.events <- queue.Event{ID: "r-1", MatchedName: "Sky Blue"}

			convey.Convey("Then the publisher receives it", func() {
				convey.So(eventually(func() bool { return len(good.published()) == 1 }), convey.ShouldBeTrue)
				convey.So(good.published()[0], convey.ShouldEqual, "r-1")
			})
		})

		convey.Convey("When one sink fails", func() {
			w := worker.NewInMemoryWorker(q, []worker.Publisher{bad, good})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			q.events <- queue.Event{ID: "r-2"}
			q.events <- queue.Event{ID: "r-3"}

			convey.Convey("Then the other sink still gets every report", func() {
				convey.So(eventually(func() bool { return len(good.published()) == 2 }), convey.ShouldBeTrue)
				convey.So(good.published(), convey.ShouldResemble, []string{"r-2", "r-3"})
			})
		})

		convey.Convey("When a publisher hangs past the publish timeout", func() {
			slow := &mockPublisher{name: "slow", hold: make(chan struct{})}
			w := worker.NewInMemoryWorker(q, []worker.Publisher{slow, good},
				worker.WithPublishTimeout(20*time.Millisecond))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			q.events <- queue.Event{ID: "r-4"}

			convey.Convey("Then delivery moves on to the next sink", func() {
				convey.So(eventually(func() bool { return len(good.published()) == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the queue closes", func() {
			w := worker.NewInMemoryWorker(q, []worker.Publisher{good})
			done := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(done)
			}()
			q.events <- queue.Event{ID: "last"}
			_ = q.Close()

			convey.Convey("Then the worker drains and exits", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					convey.So("worker did not exit", convey.ShouldBeEmpty)
				}
				convey.So(good.published(), convey.ShouldResemble, []string{"last"})
			})
		})

		convey.Convey("When Shutdown is called twice", func() {
			w := worker.NewInMemoryWorker(q, nil)
			go w.Run(context.Background())

			convey.Convey("Then both calls return without error", func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		pub := &mockPublisher{name: "log"}

		convey.Convey("When the count is not positive", func() {
			p := worker.NewPool(0, q, []worker.Publisher{pub})

			convey.Convey("Then one worker is created", func() {
				convey.So(p.Size(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When reports are queued before shutdown", func() {
			p := worker.NewPool(3, q, []worker.Publisher{pub})
			ctx := context.Background()
			p.Start(ctx)

			for i := 0; i < 20; i++ {
				convey.So(q.Enqueue(ctx, queue.Event{ID: fmt.Sprintf("r-%02d", i)}), convey.ShouldBeTrue)
			}
			err := p.Shutdown(ctx)

			convey.Convey("Then every report is delivered before it returns", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(pub.published()), convey.ShouldEqual, 20)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})

			convey.Convey("Then a second shutdown reports the pool stopped", func() {
				convey.So(errors.Is(p.Shutdown(ctx), worker.ErrStopped), convey.ShouldBeTrue)
			})
		})
	})
}
