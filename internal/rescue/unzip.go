// Package rescue implements the JSON Rescue Extractor (C4): recovering
// legacy V5 transaction archives distributed as gzip-compressed tar
// bundles of JSON transaction views.
package rescue

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/0lnetwork/graphwarehouse/internal/errtag"
	"github.com/klauspost/compress/gzip"
)

// TempBundle is a scoped temporary directory holding the decompressed
// members of one rescue archive. Callers must call Close on every exit
// path (including error paths); Close is safe to call more than once.
type TempBundle struct {
	dir string
}

// Close removes the bundle's temporary directory tree. It is the Go
// equivalent of the source's drop-on-scope-exit TempPath: there is no
// implicit cleanup, so every caller must defer it immediately after a
// successful Decompress.
func (b *TempBundle) Close() error {
	if b.dir == "" {
		return nil
	}
	dir := b.dir
	b.dir = ""
	return os.RemoveAll(dir)
}

// Dir returns the bundle's root directory.
func (b *TempBundle) Dir() string { return b.dir }

// Decompress extracts a gzip-compressed tar archive's JSON members into a
// fresh scoped temporary directory. On any failure the partially-extracted
// directory is removed before returning, so only a successful call
// requires the caller to Close.
func Decompress(tgzPath string) (*TempBundle, error) {
	dir, err := os.MkdirTemp("", "rescue-*")
	if err != nil {
		return nil, fmt.Errorf("rescue: create temp dir: %w: %w", err, errtag.ErrFatal)
	}
	bundle := &TempBundle{dir: dir}

	if err := extractTarGz(tgzPath, dir); err != nil {
		bundle.Close()
		return nil, fmt.Errorf("rescue: decompress %q: %w: %w", tgzPath, err, errtag.ErrParse)
	}
	return bundle, nil
}

func extractTarGz(tgzPath, destDir string) error {
	f, err := os.Open(tgzPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar read: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Clean(hdr.Name)
		if strings.HasPrefix(name, "..") {
			return fmt.Errorf("tar entry %q escapes archive root", hdr.Name)
		}
		target := filepath.Join(destDir, name)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("mkdir %q: %w", target, err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("create %q: %w", target, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("write %q: %w", target, err)
		}
		out.Close()
	}
}

// ListJSONFiles enumerates every .json file under dir, in lexical order.
func ListJSONFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rescue: list json files under %q: %w", dir, err)
	}
	return files, nil
}
