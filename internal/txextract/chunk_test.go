package txextract

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
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

func str(s string) []byte {
	var buf bytes.Buffer
	buf.Write(uleb(len(s)))
	buf.WriteString(s)
	return buf.Bytes()
}

// buildUserTxEntry encodes one entryUserTransaction with no entry function
// and no events, a fixed hash/info-hash pair, and the given sender.
func buildUserTxEntry(hash, infoHash byte, sender byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(entryUserTransaction))
	h := make([]byte, 32)
	h[31] = hash
	buf.Write(h)
	ih := make([]byte, 32)
	ih[31] = infoHash
	buf.Write(ih)
	s := make([]byte, 16)
	s[15] = sender
	buf.Write(s)
	buf.Write(u64le(1))  // sequence number
	buf.Write(u64le(999)) // expiration
	buf.Write(str("diem_governance::vote"))
	buf.WriteByte(0) // no entry function
	buf.Write(uleb(0)) // no events
	return buf.Bytes()
}

func buildBlockMetadataEntry(epoch, round, ts uint64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(entryBlockMetadata))
	buf.Write(u64le(epoch))
	buf.Write(u64le(round))
	buf.Write(u64le(ts))
	return buf.Bytes()
}

func TestDecodeChunkCarriesRollingContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk_0.blob")

	var buf bytes.Buffer
	buf.Write(uleb(2)) // 2 entries
	buf.Write(buildBlockMetadataEntry(5, 10, 1700000000))
	buf.Write(buildUserTxEntry(0x01, 0x01, 0x42))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := DecodeChunk(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Epoch != 5 || rec.Round != 10 || rec.BlockTimestamp != 1700000000 {
		t.Errorf("rolling context not applied: %+v", rec)
	}
	if rec.RelationLabel.Kind.String() != "Configuration" {
		t.Errorf("expected Configuration relation for unrecognized function, got %v", rec.RelationLabel)
	}
}

func TestDecodeChunkLogsContractViolationButStillEmits(t *testing.T) {
	var calls int
	orig := logContractViolation
	logContractViolation = func(txHash, infoHash [32]byte) { calls++ }
	defer func() { logContractViolation = orig }()

	dir := t.TempDir()
	path := filepath.Join(dir, "chunk_0.blob")
	var buf bytes.Buffer
	buf.Write(uleb(1))
	buf.Write(buildUserTxEntry(0x01, 0x02, 0x42)) // mismatched hashes
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := DecodeChunk(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (record still emitted)", len(records))
	}
	if calls != 1 {
		t.Errorf("logContractViolation called %d times, want 1", calls)
	}
}
