package snapshot

import (
	"fmt"

	"github.com/0lnetwork/graphwarehouse/internal/manifest"
	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// Extractor turns a discovered state-snapshot archive into the uniform
// AccountStateRecord stream, streaming chunk files in manifest order. The
// resulting record count equals the account-blob count minus any accounts
// silently skipped for lacking the core account resource.
type Extractor struct{}

// NewExtractor constructs a snapshot Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// ExtractArchive decodes every chunk named by info.Content in order and
// concatenates their account records.
func (e *Extractor) ExtractArchive(info manifest.ManifestInfo) ([]model.AccountStateRecord, int, error) {
	if info.Content == nil || info.Kind != manifest.ContentStateSnapshot {
		return nil, 0, fmt.Errorf("snapshot: %s is not a state-snapshot archive", info.ArchiveID)
	}
	legacy := info.FrameworkVersion == model.FrameworkV5

	var all []model.AccountStateRecord
	skipped := 0
	for _, chunkPath := range info.Content.ChunkPaths {
		records, n, err := ExtractChunk(chunkPath, info.FrameworkVersion, legacy)
		if err != nil {
			return nil, skipped, fmt.Errorf("snapshot: extract archive %s: %w", info.ArchiveID, err)
		}
		all = append(all, records...)
		skipped += n
	}
	return all, skipped, nil
}
