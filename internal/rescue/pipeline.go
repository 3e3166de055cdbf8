package rescue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/0lnetwork/graphwarehouse/internal/logging"
	"github.com/0lnetwork/graphwarehouse/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ChunkInserter is the loader-side seam the rescue pipeline hands decoded
// records to, keeping this package free of any graph-store dependency.
type ChunkInserter interface {
	InsertChunk(ctx context.Context, archiveID string, records []model.TransactionRecord) error
}

// PipelineConfig bounds the two semaphores named in the concurrency model:
// a parse semaphore (CPU-bound JSON/BCS decoding) and an insert semaphore
// (protecting the graph store from connection overload).
type PipelineConfig struct {
	ParseLimit  int64
	InsertLimit int64
	IncludeMiner bool
}

// ApplyDefaults fills in the parse/insert bounds when unset: parse
// defaults to runtime.NumCPU-equivalent (the caller is expected to supply
// it; a non-positive value here falls back to 1 to stay safe), insert
// defaults to the corpus's conservative 2-4 connection guidance.
func (c *PipelineConfig) ApplyDefaults(numCPU int) {
	if c.ParseLimit <= 0 {
		if numCPU <= 0 {
			numCPU = 1
		}
		c.ParseLimit = int64(numCPU)
	}
	if c.InsertLimit <= 0 {
		c.InsertLimit = 4
	}
}

// Pipeline runs the decompress -> enumerate -> (parse || insert) flow for
// one rescue archive under the configured concurrency bounds.
type Pipeline struct {
	cfg PipelineConfig
}

// NewPipeline constructs a rescue Pipeline with the given bounds.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Run decompresses tgzPath to a scoped temp directory (removed on every
// exit path), parses every JSON member under a parse-semaphore bound, and
// hands each file's decoded records to inserter under an insert-semaphore
// bound. Per-file parse or insert failures are reported through errCh-style
// aggregation but never abort the run; only the initial decompress failure
// is fatal to this call.
func (p *Pipeline) Run(ctx context.Context, tgzPath, archiveID string, inserter ChunkInserter) (uint64, error) {
	bundle, err := Decompress(tgzPath)
	if err != nil {
		return 0, fmt.Errorf("rescue: pipeline run: %w", err)
	}
	defer bundle.Close()

	files, err := ListJSONFiles(bundle.Dir())
	if err != nil {
		return 0, fmt.Errorf("rescue: pipeline run: %w", err)
	}

	parseSem := semaphore.NewWeighted(p.cfg.ParseLimit)
	insertSem := semaphore.NewWeighted(p.cfg.InsertLimit)

	var processed uint64
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, file := range files {
		file := file
		if err := parseSem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("acquire parse semaphore for %q: %w", file, err))
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer parseSem.Release(1)

			result, err := ExtractFile(file, p.cfg.IncludeMiner)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("extract %q: %w", file, err))
				mu.Unlock()
				return
			}
			if len(result.Records) == 0 {
				return
			}

			if err := insertSem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("acquire insert semaphore for %q: %w", file, err))
				mu.Unlock()
				return
			}
			defer insertSem.Release(1)

			if err := inserter.InsertChunk(ctx, archiveID, result.Records); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("insert %q: %w", file, err))
				mu.Unlock()
				return
			}
			atomic.AddUint64(&processed, uint64(len(result.Records)))
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		logRescueErrors(archiveID, errs)
	}
	return processed, nil
}

// logRescueErrors reports the per-file parse/insert errors accumulated
// while rescuing one archive (spec.md §7 ParseError handling: log and
// continue). Tests override this var to assert it fired.
var logRescueErrors = func(archiveID string, errs []error) {
	for _, err := range errs {
		logging.L().Error("rescue: file error", zap.String("archive_id", archiveID), zap.Error(err))
	}
}
