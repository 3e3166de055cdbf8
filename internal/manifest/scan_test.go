package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

func writeManifest(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestScanClassifiesByFilename(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "archive-1"), transactionManifestName)
	writeManifest(t, filepath.Join(root, "archive-2"), stateManifestName)

	current := func(path string) (*BundleContent, error) {
		return &BundleContent{Kind: classify(filepath.Base(path))}, nil
	}
	legacy := func(path string) (*BundleContent, error) {
		return nil, os.ErrInvalid
	}

	s := NewScanner(current, legacy)
	infos, err := s.Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d manifests, want 2", len(infos))
	}
	for _, info := range infos {
		if info.FrameworkVersion != model.FrameworkV7 {
			t.Errorf("archive %s: version = %v, want V7", info.ArchiveID, info.FrameworkVersion)
		}
	}
}

func TestScanFallsBackToLegacyDecoder(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "old-archive"), transactionManifestName)

	current := func(path string) (*BundleContent, error) {
		return nil, os.ErrInvalid
	}
	legacy := func(path string) (*BundleContent, error) {
		return &BundleContent{Kind: ContentTransaction}, nil
	}

	s := NewScanner(current, legacy)
	infos, err := s.Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].FrameworkVersion != model.FrameworkV5 {
		t.Fatalf("expected single V5 manifest, got %+v", infos)
	}
}

func TestScanMarksUnknownOnDoubleFailure(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "bad-archive"), stateManifestName)

	fail := func(path string) (*BundleContent, error) { return nil, os.ErrInvalid }
	s := NewScanner(fail, fail)
	infos, err := s.Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if infos[0].FrameworkVersion != model.FrameworkUnknown {
		t.Errorf("FrameworkVersion = %v, want Unknown", infos[0].FrameworkVersion)
	}
}

func TestScanMissingRootIsFatal(t *testing.T) {
	s := NewScanner(nil, nil)
	if _, err := s.Scan(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestArchiveMapGroupsByID(t *testing.T) {
	infos := []ManifestInfo{
		{ArchiveID: "a", Kind: ContentTransaction},
		{ArchiveID: "a", Kind: ContentStateSnapshot},
		{ArchiveID: "b", Kind: ContentTransaction},
	}
	m := NewArchiveMap(infos)
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if len(m.Manifests("a")) != 2 {
		t.Errorf("archive a: got %d manifests, want 2", len(m.Manifests("a")))
	}
}
