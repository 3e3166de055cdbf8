package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0lnetwork/graphwarehouse/internal/model"
	"github.com/0lnetwork/graphwarehouse/internal/rescue"
)

// rescueTgzFiles returns every .tgz file under root, recursively, in
// deterministic (lexical) path order.
func rescueTgzFiles(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tgz") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// loaderInserter adapts the batch loader to rescue.ChunkInserter, loading
// every decoded JSON-rescue file as a single, unbatched "chunk" through
// the same LoadTransactions contract the binary-chunk path uses.
type loaderInserter struct {
	loader    batchLoader
	batchSize int
}

func (l loaderInserter) InsertChunk(ctx context.Context, archiveID string, records []model.TransactionRecord) error {
	_, err := l.loader.LoadTransactions(ctx, archiveID, records, l.batchSize)
	return err
}

// VersionFiveTx decompresses and loads every *.tgz legacy V5 rescue
// archive found directly under root, sequentially (the rescue.Pipeline
// already bounds parse/insert concurrency within a single archive).
func (o *Orchestrator) VersionFiveTx(ctx context.Context, root string, cfg rescue.PipelineConfig, batchSize int) (uint64, error) {
	files, err := rescueTgzFiles(root)
	if err != nil {
		return 0, fmt.Errorf("pipeline: version five tx: %w", err)
	}

	rp := rescue.NewPipeline(cfg)
	inserter := loaderInserter{loader: o.loader, batchSize: batchSize}

	var total uint64
	for _, f := range files {
		archiveID := strings.TrimSuffix(filepath.Base(f), ".tgz")
		n, err := rp.Run(ctx, f, archiveID, inserter)
		if err != nil {
			return total, fmt.Errorf("pipeline: version five tx: rescue archive %s: %w", archiveID, err)
		}
		total += n
	}
	return total, nil
}
