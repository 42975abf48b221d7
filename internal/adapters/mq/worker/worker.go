// Package worker drains leaderboard write jobs into a store.
//
// A single Writer owning the store is what serializes appends: the JSON
// backend does a read-modify-write of the whole file per record.
package worker

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/okian/segscore/internal/adapters/mq/queue"
	"github.com/okian/segscore/internal/domain/model"
	"github.com/okian/segscore/pkg/logger"
	"github.com/okian/segscore/pkg/metrics"
)

const (
	defaultWriteTimeout = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = queue.Job

// Appender persists one record.
type Appender interface {
	Append(ctx context.Context, rec model.Record) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan Job
}

// Writer applies queued jobs to an Appender one at a time.
type Writer struct {
	queue        Queue
	store        Appender
	name         string
	writeTimeout time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewWriter creates a writer with configuration options.
func NewWriter(q Queue, store Appender, opts ...Option) *Writer {
	w := &Writer{
		queue:        q,
		store:        store,
		name:         "writer",
		writeTimeout: defaultWriteTimeout,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		logger:       logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))

	return w
}

// Run processes jobs until the queue channel closes, Shutdown is called or
// ctx is cancelled. Jobs already queued when the channel closes are drained.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown stops the loop and waits for the in-flight job.
func (w *Writer) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run has returned.
func (w *Writer) Done() <-chan struct{} { return w.done }

// process appends one record and reports the result on the job's channel.
func (w *Writer) process(ctx context.Context, j Job) {
	start := time.Now()
	wctx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	err := w.store.Append(wctx, j.Record)
	cancel()
	metrics.RecordWriterLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordErrorByType("store_append", "high")
		w.logger.Error(ctx, "leaderboard append failed",
			logger.String("submission_id", j.Record.ID),
			logger.String("name", j.Record.Name),
			logger.Error(err),
		)
		err = fmt.Errorf("append %s: %w", j.Record.ID, err)
	} else {
		w.logger.Debug(ctx, "leaderboard append",
			logger.String("submission_id", j.Record.ID),
			logger.Float64("score", j.Record.Score),
		)
	}

	// Done is buffered; a caller that gave up never blocks the writer.
	select {
	case j.Done <- err:
	default:
	}
}

// Pool runs a fixed number of writers over one queue. Leaderboard appends
// use a pool of one.
type Pool struct {
	writers []*Writer
	logger  logger.Logger
}

// NewPool creates count writers sharing q and store.
func NewPool(count int, q Queue, store Appender, opts ...Option) *Pool {
	if count < 1 {
		count = 1
	}
	p := &Pool{writers: make([]*Writer, count)}
	for i := range p.writers {
		wopts := append(slices.Clone(opts), WithName("writer-"+strconv.Itoa(i)))
		p.writers[i] = NewWriter(q, store, wopts...)
	}
	p.logger = p.writers[0].logger
	metrics.UpdateWriterCount(count)
	return p
}

// Size returns the number of writers.
func (p *Pool) Size() int { return len(p.writers) }

// Start launches every writer.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.writers {
		go w.Run(ctx)
	}
}

// Wait blocks until every writer has returned, which happens once the queue
// is closed and drained, or until ctx ends.
func (p *Pool) Wait(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.writers {
		select {
		case <-w.done:
		case <-waitCtx.Done():
			p.logger.Warn(ctx, "writer shutdown timed out", logger.Int("writer_id", i))
			return fmt.Errorf("writers did not drain: %w", waitCtx.Err())
		}
	}
	metrics.UpdateWriterCount(0)
	return nil
}

// Stop signals every writer to stop without draining and waits for them.
func (p *Pool) Stop(ctx context.Context) error {
	for _, w := range p.writers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}
	return p.Wait(ctx)
}
