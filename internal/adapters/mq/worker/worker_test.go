package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/ginput/internal/adapters/mq/queue"
	worker "github.com/okian/ginput/internal/adapters/mq/worker"
	logging "github.com/okian/ginput/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs       chan worker.Job
	enqueueErr error
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan worker.Job, 10)}
}

func (mq *mockQueue) Enqueue(_ context.Context, job worker.Job) error {
	if mq.enqueueErr != nil {
		return mq.enqueueErr
	}
	mq.jobs <- job
	return nil
}

func (mq *mockQueue) Dequeue(context.Context) <-chan worker.Job {
	return mq.jobs
}

// waitFor polls until the job reaches a final status.
func waitFor(w *worker.InMemoryWorker, id string) worker.Result {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := w.Result(id); ok && (r.Status == worker.StatusDone || r.Status == worker.StatusFailed) {
			return r
		}
		time.Sleep(5 * time.Millisecond)
	}
	r, _ := w.Result(id)
	return r
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job succeeds", func() {
			id, err := w.Submit(ctx, "ginput", func(context.Context) (any, error) {
				return []float64{1, 2}, nil
			})
			convey.So(err, convey.ShouldBeNil)
			r := waitFor(w, id)

			convey.Convey("Then its value is kept", func() {
				convey.So(r.Status, convey.ShouldEqual, worker.StatusDone)
				convey.So(r.Mode, convey.ShouldEqual, "ginput")
				convey.So(r.Value, convey.ShouldResemble, []float64{1, 2})
				convey.So(r.Err, convey.ShouldBeEmpty)
				convey.So(r.Finished.Before(r.Started), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When a job fails", func() {
			id, _ := w.Submit(ctx, "clabel", func(context.Context) (any, error) {
				return nil, errors.New("no contours")
			})
			r := waitFor(w, id)

			convey.Convey("Then the error is reported", func() {
				convey.So(r.Status, convey.ShouldEqual, worker.StatusFailed)
				convey.So(r.Err, convey.ShouldEqual, "no contours")
			})
		})

		convey.Convey("When a job panics", func() {
			id, _ := w.Submit(ctx, "ginput", func(context.Context) (any, error) {
				panic("boom")
			})
			r := waitFor(w, id)

			convey.Convey("Then it fails and the worker keeps running", func() {
				convey.So(r.Status, convey.ShouldEqual, worker.StatusFailed)
				convey.So(r.Err, convey.ShouldContainSubstring, "boom")

				next, _ := w.Submit(ctx, "ginput", func(context.Context) (any, error) { return 1, nil })
				convey.So(waitFor(w, next).Status, convey.ShouldEqual, worker.StatusDone)
			})
		})

		convey.Convey("When jobs are submitted together", func() {
			var mu sync.Mutex
			running, overlap := 0, false
			job := func(context.Context) (any, error) {
				mu.Lock()
				running++
				if running > 1 {
					overlap = true
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil, nil
			}
			var ids []string
			for range 4 {
				id, err := w.Submit(ctx, "ginput", job)
				convey.So(err, convey.ShouldBeNil)
				ids = append(ids, id)
			}
			for _, id := range ids {
				waitFor(w, id)
			}

			convey.Convey("Then they never overlap", func() {
				convey.So(overlap, convey.ShouldBeFalse)
				convey.So(w.Counts()[worker.StatusDone], convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the id is unknown", func() {
			_, ok := w.Result("missing")

			convey.Convey("Then nothing is found", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			_, err := w.Submit(ctx, "ginput", func(context.Context) (any, error) { return nil, nil })

			convey.Convey("Then new jobs are refused", func() {
				convey.So(errors.Is(err, worker.ErrStopped), convey.ShouldBeTrue)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestSubmitFailures(t *testing.T) {
	convey.Convey("Given a worker whose queue refuses jobs", t, func() {
		q := newMockQueue()
		q.enqueueErr = queue.ErrFull
		w := worker.NewInMemoryWorker(q, worker.WithLogger(logging.NewNop()))

		convey.Convey("When submitting", func() {
			id, err := w.Submit(context.Background(), "ginput", func(context.Context) (any, error) { return nil, nil })

			convey.Convey("Then the queue error is wrapped and nothing is tracked", func() {
				convey.So(errors.Is(err, queue.ErrFull), convey.ShouldBeTrue)
				convey.So(id, convey.ShouldBeEmpty)
				convey.So(w.Counts(), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When submitting a nil job", func() {
			_, err := w.Submit(context.Background(), "ginput", nil)

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestOnFinish(t *testing.T) {
	convey.Convey("Given a worker with a finish hook", t, func() {
		finished := make(chan worker.Result, 1)
		w := worker.NewInMemoryWorker(newMockQueue(),
			worker.WithLogger(logging.NewNop()),
			worker.WithOnFinish(func(r worker.Result) { finished <- r }),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		id, err := w.Submit(ctx, "waitforbuttonpress", func(context.Context) (any, error) { return "key", nil })
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the hook sees the final state", func() {
			select {
			case r := <-finished:
				convey.So(r.ID, convey.ShouldEqual, id)
				convey.So(r.Status, convey.ShouldEqual, worker.StatusDone)
				convey.So(r.Value, convey.ShouldEqual, "key")
			case <-time.After(2 * time.Second):
				convey.So("hook not called", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestRetention(t *testing.T) {
	convey.Convey("Given a worker that keeps two results on the real queue", t, func() {
		q := queue.NewInMemoryQueue[worker.Job](queue.WithCapacity(8))
		w := worker.NewInMemoryWorker(q, worker.WithMaxResults(2), worker.WithLogger(logging.NewNop()))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		var ids []string
		for range 3 {
			id, err := w.Submit(ctx, "ginput", func(context.Context) (any, error) { return nil, nil })
			convey.So(err, convey.ShouldBeNil)
			ids = append(ids, id)
		}
		waitFor(w, ids[2])
		deadline := time.Now().Add(2 * time.Second)
		for w.Counts()[worker.StatusDone] > 2 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		convey.Convey("Then the oldest result is forgotten", func() {
			convey.So(w.Counts()[worker.StatusDone], convey.ShouldEqual, 2)
			_, ok := w.Result(ids[0])
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = w.Result(ids[2])
			convey.So(ok, convey.ShouldBeTrue)
		})
	})
}
