package txextract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/0lnetwork/graphwarehouse/internal/manifest"
)

// txManifestFile is the on-disk shape of a transaction.manifest.
type txManifestFile struct {
	Version    uint64   `json:"version"`
	ChunkFiles []string `json:"chunks"`
}

// DecodeV7Manifest is a manifest.ManifestDecoder for the current
// (V6/V7) transaction.manifest shape.
func DecodeV7Manifest(path string) (*manifest.BundleContent, error) {
	return decodeManifest(path, false)
}

// DecodeV5Manifest is a manifest.ManifestDecoder for the legacy V5
// transaction.manifest shape.
func DecodeV5Manifest(path string) (*manifest.BundleContent, error) {
	return decodeManifest(path, true)
}

func decodeManifest(path string, legacy bool) (*manifest.BundleContent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("txextract: read manifest %q: %w", path, err)
	}
	var mf txManifestFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("txextract: decode manifest %q: %w", path, err)
	}
	if len(mf.ChunkFiles) == 0 {
		return nil, fmt.Errorf("txextract: manifest %q names no chunks", path)
	}
	if legacy == (mf.Version >= 6) {
		return nil, fmt.Errorf("txextract: manifest %q version %d not valid for this decoder", path, mf.Version)
	}

	dir := filepath.Dir(path)
	chunks := make([]string, len(mf.ChunkFiles))
	for i, c := range mf.ChunkFiles {
		// Chunks may be distributed gzip-compressed with a .gz suffix;
		// the manifest is rewritten here to strip it before loading, per
		// the file-format contract.
		chunks[i] = filepath.Join(dir, strings.TrimSuffix(c, ".gz"))
	}
	return &manifest.BundleContent{Kind: manifest.ContentTransaction, ChunkPaths: chunks}, nil
}
