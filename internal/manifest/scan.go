// Package manifest implements the Archive Scanner (C1): recursive discovery
// of manifest files under a root directory, classified by content kind and
// probed for framework version.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/0lnetwork/graphwarehouse/internal/errtag"
	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// ContentKind classifies a manifest file by its filename.
type ContentKind int

const (
	ContentUnknown ContentKind = iota
	ContentStateSnapshot
	ContentTransaction
	ContentEpochEnding
)

const (
	stateManifestName       = "state.manifest"
	transactionManifestName = "transaction.manifest"
	epochEndingManifestName = "epoch_ending.manifest"
)

func (k ContentKind) String() string {
	switch k {
	case ContentStateSnapshot:
		return "StateSnapshot"
	case ContentTransaction:
		return "Transaction"
	case ContentEpochEnding:
		return "EpochEnding"
	default:
		return "Unknown"
	}
}

// BundleContent is the raw decoded shape of a manifest file, enough to
// drive the appropriate extractor without re-parsing it.
type BundleContent struct {
	Kind        ContentKind
	ChunkPaths  []string // relative paths to data chunk files, manifest order preserved
}

// ManifestInfo describes one discovered archive.
type ManifestInfo struct {
	// ArchiveID is the containing directory's base name, assumed unique
	// within a single scan.
	ArchiveID string
	// Dir is the absolute path to the archive's containing directory.
	Dir string
	// ManifestPath is the absolute path to the manifest file itself.
	ManifestPath string
	Kind             ContentKind
	FrameworkVersion model.FrameworkVersion
	Content          *BundleContent
}

// ManifestDecoder probes a manifest file's bytes and returns its bundle
// content, or an error if this decoder's era does not recognize the shape.
// V7Decoder and V5Decoder are supplied by internal/snapshot and
// internal/txextract so this package stays free of format-specific logic.
type ManifestDecoder func(path string) (*BundleContent, error)

// Scanner walks a root directory looking for manifest files and classifies
// each by trying the current decoder first, then falling back to the
// legacy V5 decoder.
type Scanner struct {
	CurrentDecoder ManifestDecoder
	LegacyDecoder  ManifestDecoder
}

// NewScanner constructs a Scanner with the given V6/V7 and V5 manifest
// decoders.
func NewScanner(current, legacy ManifestDecoder) *Scanner {
	return &Scanner{CurrentDecoder: current, LegacyDecoder: legacy}
}

func classify(name string) ContentKind {
	switch name {
	case stateManifestName:
		return ContentStateSnapshot
	case transactionManifestName:
		return ContentTransaction
	case epochEndingManifestName:
		return ContentEpochEnding
	default:
		return ContentUnknown
	}
}

// Scan walks root recursively and returns a ManifestInfo for every manifest
// file found, in deterministic (lexical) path order. A missing root
// directory is a FatalError; a malformed individual manifest sets that
// entry's FrameworkVersion to Unknown rather than aborting the scan.
func (s *Scanner) Scan(root string) ([]ManifestInfo, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("manifest: stat root %q: %w: %w", root, err, errtag.ErrFatal)
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if classify(d.Name()) != ContentUnknown {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manifest: walk %q: %w: %w", root, err, errtag.ErrFatal)
	}
	sort.Strings(paths)

	infos := make([]ManifestInfo, 0, len(paths))
	for _, p := range paths {
		infos = append(infos, s.probe(p))
	}
	return infos, nil
}

func (s *Scanner) probe(manifestPath string) ManifestInfo {
	dir := filepath.Dir(manifestPath)
	info := ManifestInfo{
		ArchiveID:    filepath.Base(dir),
		Dir:          dir,
		ManifestPath: manifestPath,
		Kind:         classify(filepath.Base(manifestPath)),
	}

	if content, err := s.CurrentDecoder(manifestPath); err == nil {
		info.FrameworkVersion = model.FrameworkV7
		info.Content = content
		return info
	}
	if content, err := s.LegacyDecoder(manifestPath); err == nil {
		info.FrameworkVersion = model.FrameworkV5
		info.Content = content
		return info
	}
	info.FrameworkVersion = model.FrameworkUnknown
	return info
}
