package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/carbonwatch/emissions-dataprep/internal/dataset"
	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/carbonwatch/emissions-dataprep/internal/observability"
)

// Loader streams fixed-size batches from one split's dataset, fanning the
// per-row image fetches out to parallel workers. Each worker owns a disjoint
// interleaved index shard, so workers share no state and need no locks.
// Within a shard samples arrive in ascending index order; the merged batch
// stream carries no cross-worker ordering guarantee.
type Loader struct {
	ds        *dataset.Dataset
	split     domain.Split
	batchSize int
	workers   int
	metrics   *observability.Metrics
}

// Result is one element of the batch stream: a batch, or the fatal error
// that ended the pass.
type Result struct {
	Batch dataset.Batch
	Err   error
}

// Split returns the split this loader serves.
func (l *Loader) Split() domain.Split { return l.split }

// Len returns the underlying dataset's nominal length.
func (l *Loader) Len() int { return l.ds.Len() }

// Batches starts one pass over the dataset and returns the batch stream.
// The channel closes when the pass completes, after a fatal error, or when
// ctx is cancelled. A fetch failure is delivered as the final Result; there
// is no retry and no resumption mid-pass.
func (l *Loader) Batches(ctx context.Context) <-chan Result {
	out := make(chan Result)
	go l.run(ctx, out)
	return out
}

type sampleResult struct {
	sample domain.Sample
	err    error
}

func (l *Loader) run(ctx context.Context, out chan<- Result) {
	defer close(out)

	workers := max(1, l.workers)
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples := make(chan sampleResult, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l.runWorker(workerCtx, id, workers, samples)
		}(w)
	}
	go func() {
		wg.Wait()
		close(samples)
	}()

	emit := func(r Result) bool {
		select {
		case out <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	buf := make([]domain.Sample, 0, l.batchSize)
	flush := func() bool {
		batch, err := dataset.Stack(buf)
		buf = buf[:0]
		if err != nil {
			return emit(Result{Err: err})
		}
		l.metrics.BatchesEmitted.WithLabelValues(string(l.split)).Inc()
		return emit(Result{Batch: batch})
	}

	for res := range samples {
		if res.err != nil {
			l.metrics.StreamErrors.WithLabelValues(string(l.split)).Inc()
			emit(Result{Err: res.err})
			cancel()
			return
		}
		l.metrics.SamplesStreamed.WithLabelValues(string(l.split)).Inc()
		buf = append(buf, res.sample)
		if len(buf) == l.batchSize {
			if !flush() {
				cancel()
				return
			}
		}
	}

	if len(buf) > 0 {
		flush()
	}
}

// runWorker drains one shard into the shared sample channel.
func (l *Loader) runWorker(ctx context.Context, id, workers int, samples chan<- sampleResult) {
	send := func(r sampleResult) bool {
		select {
		case samples <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	it, err := l.ds.Iter(id, workers)
	if err != nil {
		send(sampleResult{err: err})
		return
	}

	for {
		s, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		if err != nil {
			send(sampleResult{err: err})
			return
		}
		if !send(sampleResult{sample: s}) {
			return
		}
	}
}
