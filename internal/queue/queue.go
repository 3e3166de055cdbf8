// Package queue implements the Work Queue (C5): persistent per-archive,
// per-batch completion tracking inside the graph store, enabling
// resumable loads.
package queue

import (
	"context"
	"fmt"

	"github.com/0lnetwork/graphwarehouse/internal/graph"
	"github.com/0lnetwork/graphwarehouse/internal/manifest"
)

// Queue wraps a graph.Store with the four work-queue operations. A batch
// claim is made by an upsert that sets completed=false; concurrent
// claimants may claim the same batch, but duplicate work is harmless
// because every downstream upsert is idempotent.
type Queue struct {
	store *graph.Store
}

// New constructs a Queue backed by the given graph store.
func New(store *graph.Store) *Queue {
	return &Queue{store: store}
}

const updateTaskCypher = `
MERGE (q:Queue {archive_id: $archive_id, batch: $batch})
ON CREATE SET q.created_at = datetime(), q.modified_at = datetime(), q.completed = $completed
ON MATCH SET q.modified_at = datetime(), q.completed = $completed
RETURN q.archive_id AS archive_id
`

// UpdateTask upserts the queue node for (archiveID, batch) with the given
// completion state and returns the archive id, matching the source's
// update_task contract.
func (q *Queue) UpdateTask(ctx context.Context, archiveID string, batch uint64, completed bool) (string, error) {
	_, err := q.store.Run(ctx, updateTaskCypher, map[string]any{
		"archive_id": archiveID,
		"batch":      batch,
		"completed":  completed,
	})
	if err != nil {
		return "", fmt.Errorf("queue: update task %s/%d: %w", archiveID, batch, err)
	}
	return archiveID, nil
}

const isBatchCompleteCypher = `
MATCH (q:Queue {archive_id: $archive_id, batch: $batch})
RETURN q.completed AS completed
`

// IsBatchComplete reports nil if the batch is unknown, or a pointer to its
// completion state otherwise.
func (q *Queue) IsBatchComplete(ctx context.Context, archiveID string, batch uint64) (*bool, error) {
	rows, err := q.store.RunRead(ctx, isBatchCompleteCypher, map[string]any{
		"archive_id": archiveID,
		"batch":      batch,
	})
	if err != nil {
		return nil, fmt.Errorf("queue: is batch complete %s/%d: %w", archiveID, batch, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	completed, _ := rows[0]["completed"].(bool)
	return &completed, nil
}

const areAllCompletedCypher = `
MATCH (q:Queue {archive_id: $archive_id})
RETURN count(q) AS total, count(CASE WHEN q.completed = true THEN 1 END) AS done
`

// AreAllCompleted reports true iff every known batch of archiveID is
// complete; an archive with no known batches reports false.
func (q *Queue) AreAllCompleted(ctx context.Context, archiveID string) (bool, error) {
	rows, err := q.store.RunRead(ctx, areAllCompletedCypher, map[string]any{"archive_id": archiveID})
	if err != nil {
		return false, fmt.Errorf("queue: are all completed %s: %w", archiveID, err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	total, _ := toInt(rows[0]["total"])
	done, _ := toInt(rows[0]["done"])
	if total == 0 {
		return false, nil
	}
	return total == done, nil
}

const getQueuedCypher = `
MATCH (q:Queue {completed: false})
RETURN DISTINCT q.archive_id AS archive_id
`

// GetQueued returns every archive id with at least one incomplete batch.
func (q *Queue) GetQueued(ctx context.Context) ([]string, error) {
	rows, err := q.store.RunRead(ctx, getQueuedCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: get queued: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id, ok := row["archive_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

const clearQueueCypher = `
MATCH (q:Queue)
DETACH DELETE q
`

// ClearQueue deletes every queue node, letting a subsequent run reprocess
// every batch from scratch on operator demand.
func (q *Queue) ClearQueue(ctx context.Context) error {
	if _, err := q.store.Run(ctx, clearQueueCypher, nil); err != nil {
		return fmt.Errorf("queue: clear queue: %w", err)
	}
	return nil
}

// PushFromArchiveMap seeds batch 0 as incomplete for every archive
// discovered by a scan, so a crawl always has a starting queue entry even
// before the loader chunks its first batch.
func (q *Queue) PushFromArchiveMap(ctx context.Context, archiveMap *manifest.ArchiveMap) error {
	for _, id := range archiveMap.ArchiveIDs() {
		if _, err := q.UpdateTask(ctx, id, 0, false); err != nil {
			return fmt.Errorf("queue: push from archive map: %w", err)
		}
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
