package pipeline

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/rescue"
)

func writeEmptyTgz(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()
}

func TestVersionFiveTxProcessesEveryTgzUnderRoot(t *testing.T) {
	root := t.TempDir()
	writeEmptyTgz(t, filepath.Join(root, "archive-1.tgz"))
	writeEmptyTgz(t, filepath.Join(root, "archive-2.tgz"))
	if err := os.WriteFile(filepath.Join(root, "not-a-tgz.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	bl := &fakeBatchLoader{}
	o := &Orchestrator{loader: bl}

	total, err := o.VersionFiveTx(context.Background(), root, rescue.PipelineConfig{ParseLimit: 1, InsertLimit: 1}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 {
		t.Errorf("got total=%d, want 0 (empty archives)", total)
	}
}

func TestRescueTgzFilesFindsOnlyTgzSuffix(t *testing.T) {
	root := t.TempDir()
	writeEmptyTgz(t, filepath.Join(root, "a.tgz"))
	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := rescueTgzFiles(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("got %d files, want 1", len(files))
	}
}
