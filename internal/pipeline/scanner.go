package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/0lnetwork/graphwarehouse/internal/manifest"
	"github.com/0lnetwork/graphwarehouse/internal/snapshot"
	"github.com/0lnetwork/graphwarehouse/internal/txextract"
)

// NewDefaultScanner builds the manifest.Scanner this warehouse runs in
// production: it dispatches a manifest path to the snapshot or
// transaction decoder by filename before trying current-then-legacy, so
// a single Scanner instance can classify both content kinds.
func NewDefaultScanner() *manifest.Scanner {
	return manifest.NewScanner(dispatchCurrent, dispatchLegacy)
}

func dispatchCurrent(path string) (*manifest.BundleContent, error) {
	return dispatch(path, snapshot.DecodeV7Manifest, txextract.DecodeV7Manifest)
}

func dispatchLegacy(path string) (*manifest.BundleContent, error) {
	return dispatch(path, snapshot.DecodeV5Manifest, txextract.DecodeV5Manifest)
}

func dispatch(path string, decodeSnapshot, decodeTx manifest.ManifestDecoder) (*manifest.BundleContent, error) {
	switch filepath.Base(path) {
	case "state.manifest":
		return decodeSnapshot(path)
	case "transaction.manifest":
		return decodeTx(path)
	default:
		return nil, fmt.Errorf("pipeline: %s has no registered decoder", path)
	}
}
