// Package pipeline runs a document through a fixed pool of line
// accumulators and reduces their partial counts into one result.
//
// Every worker owns two channels: a buffered inbound line queue and a
// single-use result slot. Line i of the document is delivered to worker
// i mod N, so each worker sees its lines in document order. Closing a
// worker's line queue tells it that no more input will arrive. Any worker
// that stops before handing back its counts fails the whole run; there is no
// partial result.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/counter"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/tracing"
)

const DefaultQueueSize = 256

// Accumulator is the per-worker counting unit. *counter.Accumulator is the
// production implementation.
type Accumulator interface {
	ProcessLine(line string)
	Counts() counter.WordCount
	LinesProcessed() uint64
}

// AccumulatorFactory builds one Accumulator per worker from the run's
// shared rules.
type AccumulatorFactory func(rules counter.Rules) Accumulator

func newCounterAccumulator(rules counter.Rules) Accumulator {
	return counter.New(rules)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize sets the capacity of each worker's inbound line queue. Zero
// makes delivery synchronous.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.queueSize = n
		}
	}
}

// WithAccumulatorFactory replaces the accumulator used by workers.
func WithAccumulatorFactory(f AccumulatorFactory) Option {
	return func(d *Dispatcher) {
		if f != nil {
			d.newAccumulator = f
		}
	}
}

// WithLogger sets the logger used when ctx carries no request id.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dispatcher fans lines out to a fixed number of workers. It holds no
// per-run state and may be used for concurrent runs.
type Dispatcher struct {
	workers        int
	queueSize      int
	newAccumulator AccumulatorFactory
	logger         *slog.Logger
}

// New returns a Dispatcher with the given pool size.
func New(workers int, opts ...Option) (*Dispatcher, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: worker count must be at least 1, got %d", errors.ErrInvalidInput, workers)
	}
	d := &Dispatcher{
		workers:        workers,
		queueSize:      DefaultQueueSize,
		newAccumulator: newCounterAccumulator,
		logger:         logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Workers returns the pool size.
func (d *Dispatcher) Workers() int { return d.workers }

// Result is the merged outcome of a run. Counts is owned by the caller.
type Result struct {
	Counts   counter.WordCount
	Lines    uint64
	Workers  int
	Duration time.Duration
}

// Ranked returns the k most frequent words; k <= 0 returns all of them.
func (r *Result) Ranked(k int) []ranking.Entry {
	return ranking.Rank(r.Counts, k)
}

// Process consumes lines once, left to right, and returns the merged counts.
// A non-nil error from the sequence aborts the run with an IO failure.
// ctx carries logging and tracing values only; a started run is not
// cancellable.
func (d *Dispatcher) Process(ctx context.Context, lines iter.Seq2[string, error], rules counter.Rules) (*Result, error) {
	start := time.Now()
	log := d.logFor(ctx)
	ctx, span := tracing.StartChildSpan(ctx, "pipeline.process")
	defer span.End()
	span.SetAttr("workers", d.workers)

	pool := make([]*worker, d.workers)
	var g errgroup.Group
	for i := range pool {
		pool[i] = newWorker(i, d.newAccumulator(rules), d.queueSize)
		g.Go(pool[i].run)
	}

	_, dispatchSpan := tracing.StartChildSpan(ctx, "pipeline.dispatch")
	dispatched, err := dispatch(lines, pool)
	for _, w := range pool {
		close(w.lines)
	}
	dispatchSpan.SetAttr("lines", dispatched)
	dispatchSpan.End()
	if err != nil {
		g.Wait()
		return nil, err
	}

	_, collectSpan := tracing.StartChildSpan(ctx, "pipeline.collect")
	partials := make([]partial, len(pool))
	for i, w := range pool {
		p, err := w.collect()
		if err != nil {
			collectSpan.End()
			g.Wait()
			return nil, err
		}
		partials[i] = p
	}
	if err := g.Wait(); err != nil {
		collectSpan.End()
		return nil, &errors.StageError{Kind: errors.ErrCollect, Stage: errors.StageCollect, Worker: -1, Err: err}
	}
	collectSpan.End()

	merged := counter.New(rules)
	var processed uint64
	for i, p := range partials {
		log.Debug("worker finished", "worker", i, "lines", p.lines, "distinct_words", len(p.counts))
		merged.Merge(p.counts)
		processed += p.lines
	}

	result := &Result{
		Counts:   merged.Counts(),
		Lines:    processed,
		Workers:  d.workers,
		Duration: time.Since(start),
	}
	span.SetAttr("lines", processed)
	span.SetAttr("distinct_words", len(result.Counts))
	log.Debug("run complete",
		"lines", processed,
		"workers", d.workers,
		"distinct_words", len(result.Counts),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// ProcessLines runs an in-memory document.
func (d *Dispatcher) ProcessLines(ctx context.Context, document []string, rules counter.Rules) (*Result, error) {
	return d.Process(ctx, Slice(document), rules)
}

func (d *Dispatcher) logFor(ctx context.Context) *slog.Logger {
	if id := logger.RequestID(ctx); id != "" {
		return d.logger.With("request_id", id)
	}
	return d.logger
}

// ProcessDocument runs document through a fresh pool of n workers.
func ProcessDocument(ctx context.Context, document []string, rules counter.Rules, n int) (*Result, error) {
	d, err := New(n)
	if err != nil {
		return nil, err
	}
	return d.ProcessLines(ctx, document, rules)
}

func dispatch(lines iter.Seq2[string, error], pool []*worker) (uint64, error) {
	var i uint64
	n := uint64(len(pool))
	for line, err := range lines {
		if err != nil {
			return i, &errors.StageError{Kind: errors.ErrIO, Stage: errors.StageRead, Worker: -1, Err: err}
		}
		w := pool[i%n]
		select {
		case w.lines <- line:
		case <-w.done:
			return i, &errors.StageError{Kind: errors.ErrDispatch, Stage: errors.StageDispatch, Worker: w.id, Err: w.failure()}
		}
		i++
	}
	return i, nil
}

type partial struct {
	counts counter.WordCount
	lines  uint64
}

type worker struct {
	id     int
	acc    Accumulator
	lines  chan string
	result chan partial
	done   chan struct{}
	err    error
}

func newWorker(id int, acc Accumulator, queueSize int) *worker {
	return &worker{
		id:     id,
		acc:    acc,
		lines:  make(chan string, queueSize),
		result: make(chan partial, 1),
		done:   make(chan struct{}),
	}
}

// run drains the line queue and hands back the counts. err is written before
// done is closed, so readers that observed done may read it.
func (w *worker) run() (err error) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d panicked: %v", w.id, r)
			w.err = err
		}
	}()
	for line := range w.lines {
		w.acc.ProcessLine(line)
	}
	w.result <- partial{counts: w.acc.Counts(), lines: w.acc.LinesProcessed()}
	return nil
}

// collect waits for the worker's result. A worker that exits without
// publishing one is a collect failure.
func (w *worker) collect() (partial, error) {
	select {
	case p := <-w.result:
		return p, nil
	case <-w.done:
		select {
		case p := <-w.result:
			return p, nil
		default:
		}
		return partial{}, &errors.StageError{Kind: errors.ErrCollect, Stage: errors.StageCollect, Worker: w.id, Err: w.failure()}
	}
}

func (w *worker) failure() error {
	if w.err != nil {
		return w.err
	}
	return errWorkerGone
}

var errWorkerGone = stderrors.New("worker exited")
