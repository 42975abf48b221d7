package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/segscore/internal/adapters/mq/queue"
	worker "github.com/okian/segscore/internal/adapters/mq/worker"
	model "github.com/okian/segscore/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

// recordingStore appends to a slice and fails for configured names.
type recordingStore struct {
	mu       sync.Mutex
	records  []model.Record
	failFor  map[string]error
	inflight int
	maxSeen  int
	delay    time.Duration
}

func newRecordingStore() *recordingStore {
	return &recordingStore{failFor: make(map[string]error)}
}

func (s *recordingStore) Append(ctx context.Context, rec model.Record) error {
	s.mu.Lock()
	s.inflight++
	if s.inflight > s.maxSeen {
		s.maxSeen = s.inflight
	}
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err, ok := s.failFor[rec.Name]; ok {
		return err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.Name
	}
	return out
}

func (s *recordingStore) peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxSeen
}

func wait(t *testing.T, j model.WriteJob) error {
	t.Helper()
	select {
	case err := <-j.Done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("job was never completed")
		return nil
	}
}

func TestWriter(t *testing.T) {
	convey.Convey("Given a writer draining a queue into a store", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		store := newRecordingStore()
		w := worker.NewWriter(q, store, worker.WithName("test-writer"))
		go w.Run(ctx)

		convey.Convey("When a job is enqueued", func() {
			j := model.NewWriteJob(model.Record{ID: "1", Name: "alice", Score: 0.8})
			convey.So(q.Enqueue(ctx, j), convey.ShouldBeNil)

			convey.Convey("Then the record is stored and the caller is told", func() {
				convey.So(wait(t, j), convey.ShouldBeNil)
				convey.So(store.names(), convey.ShouldResemble, []string{"alice"})
			})
		})

		convey.Convey("When the store fails", func() {
			boom := errors.New("disk full")
			store.failFor["bob"] = boom
			j := model.NewWriteJob(model.Record{ID: "2", Name: "bob", Score: 0.1})
			convey.So(q.Enqueue(ctx, j), convey.ShouldBeNil)

			convey.Convey("Then the error reaches the caller", func() {
				err := wait(t, j)
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "append 2")
			})
		})

		convey.Convey("When many jobs arrive", func() {
			jobs := make([]model.WriteJob, 20)
			for i := range jobs {
				jobs[i] = model.NewWriteJob(model.Record{Name: fmt.Sprint(i), Score: 0.5})
				convey.So(q.Enqueue(ctx, jobs[i]), convey.ShouldBeNil)
			}

			convey.Convey("Then they are applied in order", func() {
				for _, j := range jobs {
					convey.So(wait(t, j), convey.ShouldBeNil)
				}
				names := store.names()
				convey.So(names, convey.ShouldHaveLength, 20)
				for i, n := range names {
					convey.So(n, convey.ShouldEqual, fmt.Sprint(i))
				}
			})
		})

		convey.Convey("When shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then Shutdown returns and may be repeated", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a single-writer pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		store := newRecordingStore()
		store.delay = time.Millisecond
		p := worker.NewPool(1, q, store)
		p.Start(ctx)

		convey.Convey("When concurrent callers submit", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 30)
			for i := 0; i < 30; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					j := model.NewWriteJob(model.Record{Name: fmt.Sprint(i), Score: 0.1})
					if err := q.Enqueue(ctx, j); err != nil {
						errs <- err
						return
					}
					errs <- <-j.Done
				}(i)
			}
			wg.Wait()
			close(errs)

			convey.Convey("Then every write lands and appends never overlap", func() {
				for err := range errs {
					convey.So(err, convey.ShouldBeNil)
				}
				convey.So(store.names(), convey.ShouldHaveLength, 30)
				convey.So(store.peak(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the queue is closed with jobs pending", func() {
			pending := make([]model.WriteJob, 5)
			for i := range pending {
				pending[i] = model.NewWriteJob(model.Record{Name: fmt.Sprint("p", i), Score: 0.2})
				convey.So(q.Enqueue(ctx, pending[i]), convey.ShouldBeNil)
			}
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then Wait returns after draining them", func() {
				convey.So(p.Wait(ctx), convey.ShouldBeNil)
				for _, j := range pending {
					convey.So(wait(t, j), convey.ShouldBeNil)
				}
				convey.So(p.Size(), convey.ShouldEqual, 1)
			})
		})
	})

	convey.Convey("Given a pool whose queue is never closed", t, func() {
		p := worker.NewPool(1, queue.NewInMemoryQueue(), newRecordingStore())
		p.Start(context.Background())

		convey.Convey("Then Wait gives up and Stop still ends the writers", func() {
			short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			convey.So(p.Wait(short), convey.ShouldNotBeNil)
			convey.So(p.Stop(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a pool asked for zero writers", t, func() {
		p := worker.NewPool(0, queue.NewInMemoryQueue(), newRecordingStore())
		p.Start(context.Background())

		convey.Convey("Then it still has one", func() {
			convey.So(p.Size(), convey.ShouldEqual, 1)
			convey.So(p.Stop(context.Background()), convey.ShouldBeNil)
		})
	})
}
