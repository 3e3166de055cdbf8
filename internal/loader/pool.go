// Package loader implements the Batch Loader (C6): chunking record
// streams, rendering them as upsert statements, submitting under bounded
// concurrency, and updating the work queue.
package loader

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// WorkerFunc is one unit of archive-level work: load a single archive and
// report any error encountered. Errors are aggregated by the Pool rather
// than aborting sibling work, matching the loader's per-archive isolation.
type WorkerFunc func(ctx context.Context) error

// job pairs a WorkerFunc with a transient identifier used only for
// progress logging.
type job struct {
	id uuid.UUID
	fn WorkerFunc
}

// Pool runs WorkerFuncs under a bounded number of concurrent workers,
// the channel-based worker-pool pattern used throughout this warehouse's
// archive-level parallelism.
type Pool struct {
	concurrency int
	jobs        chan job
	wg          sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// NewPool constructs a Pool with the given worker count (at least 1).
func NewPool(concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	p := &Pool{concurrency: concurrency, jobs: make(chan job, concurrency*2)}
	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		if err := j.fn(context.Background()); err != nil {
			p.mu.Lock()
			p.errs = append(p.errs, err)
			p.mu.Unlock()
		}
	}
}

// Submit enqueues a unit of work. It blocks if every worker is busy and
// the internal buffer is full, providing natural backpressure.
func (p *Pool) Submit(fn WorkerFunc) {
	p.jobs <- job{id: uuid.New(), fn: fn}
}

// Wait closes the job channel and blocks until every queued job has been
// processed, then returns every error collected along the way.
func (p *Pool) Wait() []error {
	close(p.jobs)
	p.wg.Wait()
	return p.errs
}
