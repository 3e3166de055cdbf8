package rescue

import (
	"archive/tar"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeTgzFixture(t *testing.T, path string, files map[string]string) {
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

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		content := files[name]
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDecompressExtractsJSONMembers(t *testing.T) {
	dir := t.TempDir()
	tgzPath := filepath.Join(dir, "rescue.tgz")
	writeTgzFixture(t, tgzPath, map[string]string{
		"a.json": "[]",
		"b.json": "[]",
	})

	bundle, err := Decompress(tgzPath)
	if err != nil {
		t.Fatal(err)
	}
	defer bundle.Close()

	files, err := ListJSONFiles(bundle.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
}

func TestDecompressRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	tgzPath := filepath.Join(dir, "malicious.tgz")
	writeTgzFixture(t, tgzPath, map[string]string{
		"../../etc/evil.json": "[]",
	})

	if _, err := Decompress(tgzPath); err == nil {
		t.Fatal("expected path-traversal rejection")
	}
}

func TestTempBundleCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	tgzPath := filepath.Join(dir, "rescue.tgz")
	writeTgzFixture(t, tgzPath, map[string]string{"a.json": "[]"})

	bundle, err := Decompress(tgzPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := bundle.Close(); err != nil {
		t.Fatal(err)
	}
	if err := bundle.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}
