package txextract

import (
	"fmt"

	"github.com/0lnetwork/graphwarehouse/internal/manifest"
	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// Extractor turns a discovered transaction archive into the uniform
// TransactionRecord stream, streaming chunk files in manifest order and
// carrying the rolling block-metadata context across chunk boundaries.
type Extractor struct{}

// NewExtractor constructs a transaction Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// ExtractArchive decodes every chunk named by info.Content in order.
// Records are produced in archive order (spec.md §5); there is no
// ordering guarantee across distinct archives extracted in parallel.
func (e *Extractor) ExtractArchive(info manifest.ManifestInfo) ([]model.TransactionRecord, error) {
	if info.Content == nil || info.Kind != manifest.ContentTransaction {
		return nil, fmt.Errorf("txextract: %s is not a transaction archive", info.ArchiveID)
	}

	var all []model.TransactionRecord
	for _, chunkPath := range info.Content.ChunkPaths {
		records, err := DecodeChunk(chunkPath)
		if err != nil {
			return nil, fmt.Errorf("txextract: extract archive %s: %w", info.ArchiveID, err)
		}
		all = append(all, records...)
	}
	return all, nil
}
