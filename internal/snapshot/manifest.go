// Package snapshot implements the Snapshot Extractor (C2): parsing
// state-snapshot archives (V5 and V6/V7 formats) into a uniform
// AccountStateRecord stream.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0lnetwork/graphwarehouse/internal/manifest"
)

// stateManifestFile is the on-disk shape of a state.manifest: a JSON
// document naming the chunk files that hold the account blobs, in the
// order they must be streamed.
type stateManifestFile struct {
	Version    uint64   `json:"version"`
	ChunkFiles []string `json:"chunks"`
}

// DecodeV7Manifest is a manifest.ManifestDecoder that recognizes the
// current (V6/V7) state.manifest shape.
func DecodeV7Manifest(path string) (*manifest.BundleContent, error) {
	return decodeManifest(path, false)
}

// DecodeV5Manifest is a manifest.ManifestDecoder for the legacy V5
// state.manifest shape. V5 manifests use the identical JSON envelope but
// are only reached once the V7 decoder has already failed to parse the
// directory's chunk layout (probed by scanProbe below), mirroring the
// "try current, then legacy" scan policy.
func DecodeV5Manifest(path string) (*manifest.BundleContent, error) {
	return decodeManifest(path, true)
}

func decodeManifest(path string, legacy bool) (*manifest.BundleContent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read manifest %q: %w", path, err)
	}
	var mf stateManifestFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("snapshot: decode manifest %q: %w", path, err)
	}
	if len(mf.ChunkFiles) == 0 {
		return nil, fmt.Errorf("snapshot: manifest %q names no chunks", path)
	}
	if legacy == (mf.Version >= 6) {
		// A V7 archive's manifest declares version>=6; refuse it in the
		// legacy decoder (and vice versa) so the scanner's try-then-
		// fallback logic actually distinguishes eras.
		return nil, fmt.Errorf("snapshot: manifest %q version %d not valid for this decoder", path, mf.Version)
	}

	dir := filepath.Dir(path)
	chunks := make([]string, len(mf.ChunkFiles))
	for i, c := range mf.ChunkFiles {
		chunks[i] = filepath.Join(dir, c)
	}
	return &manifest.BundleContent{Kind: manifest.ContentStateSnapshot, ChunkPaths: chunks}, nil
}
