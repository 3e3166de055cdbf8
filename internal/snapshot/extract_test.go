package snapshot

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func uleb(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			break
		}
	}
	return out
}

func resourceEntry(tag string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(uleb(len(tag)))
	buf.WriteString(tag)
	buf.Write(uleb(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

func writeChunkFixture(t *testing.T, path string, addr [16]byte, resources [][]byte) {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(u64le(100))       // version
	buf.Write(u64le(3))         // epoch
	buf.Write(u64le(1700000000)) // timestamp
	buf.Write(uleb(1))           // one account blob
	buf.Write(addr[:])
	buf.Write(uleb(len(resources)))
	for _, r := range resources {
		buf.Write(r)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractChunkCoreFieldsWithDefaults(t *testing.T) {
	dir := t.TempDir()
	chunkPath := filepath.Join(dir, "chunk_0.blob")
	var addr [16]byte
	addr[15] = 0x01

	resources := [][]byte{
		resourceEntry(resourceAccount, u64le(7)), // sequence_num = 7
		resourceEntry(resourceCoinStore, u64le(500)),
	}
	writeChunkFixture(t, chunkPath, addr, resources)

	records, skipped, err := ExtractChunk(chunkPath, model.FrameworkV7, false)
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.SequenceNum != 7 {
		t.Errorf("SequenceNum = %d, want 7", rec.SequenceNum)
	}
	if rec.Balance != 500 {
		t.Errorf("Balance = %d, want 500", rec.Balance)
	}
	if rec.SlowWalletAcc {
		t.Errorf("SlowWalletAcc = true, want false (resource absent)")
	}
	if rec.Version != 100 || rec.Epoch != 3 {
		t.Errorf("chunk header not propagated: version=%d epoch=%d", rec.Version, rec.Epoch)
	}
}

func TestExtractChunkSkipsAccountWithoutCoreResource(t *testing.T) {
	dir := t.TempDir()
	chunkPath := filepath.Join(dir, "chunk_0.blob")
	var addr [16]byte
	writeChunkFixture(t, chunkPath, addr, [][]byte{
		resourceEntry(resourceCoinStore, u64le(1)),
	})

	records, skipped, err := ExtractChunk(chunkPath, model.FrameworkV7, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 || skipped != 1 {
		t.Fatalf("got %d records, %d skipped; want 0, 1", len(records), skipped)
	}
}
