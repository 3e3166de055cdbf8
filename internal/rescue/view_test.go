package rescue

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
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

func balanceTransferBytes(dest model.Address, amount uint64) string {
	var buf bytes.Buffer
	buf.WriteByte(byte(scriptBalanceTransfer))
	buf.Write(dest[:])
	buf.Write(u64le(amount))
	return "0x" + hex.EncodeToString(buf.Bytes())
}

func writeRescueFixture(t *testing.T, dir string, views []transactionView) string {
	t.Helper()
	raw, err := json.Marshal(views)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "rescue.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractFileDecodesBalanceTransfer(t *testing.T) {
	dest := model.Address{0x07}
	dir := t.TempDir()
	path := writeRescueFixture(t, dir, []transactionView{
		{
			Version:       1,
			Hash:          "0x" + hex.EncodeToString(bytes.Repeat([]byte{0x01}, 32)),
			SenderAddress: "0x0000000000000000000000000000aa",
			RawTxnBytes:   balanceTransferBytes(dest, 42),
		},
	})

	result, err := ExtractFile(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(result.Records))
	}
	rec := result.Records[0]
	if rec.RelationLabel.Kind != model.RelationTransfer || rec.RelationLabel.Counterpart != dest {
		t.Errorf("got relation %+v, want Transfer(%v)", rec.RelationLabel, dest)
	}
}

func TestExtractFileDropsMinerByDefault(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	buf.WriteByte(byte(scriptMinerStateCommit))
	buf.Write(u64le(12345))
	minerBytes := "0x" + hex.EncodeToString(buf.Bytes())

	path := writeRescueFixture(t, dir, []transactionView{
		{
			Version:       1,
			Hash:          "0x" + hex.EncodeToString(bytes.Repeat([]byte{0x02}, 32)),
			SenderAddress: "0x0000000000000000000000000000bb",
			RawTxnBytes:   minerBytes,
		},
	})

	result, err := ExtractFile(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 0 {
		t.Fatalf("got %d records, want 0 (miner dropped by default)", len(result.Records))
	}

	result, err = ExtractFile(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("with includeMiner=true, got %d records, want 1", len(result.Records))
	}
}

func TestExtractFileCountsNewEpochEvents(t *testing.T) {
	dir := t.TempDir()
	path := writeRescueFixture(t, dir, []transactionView{
		{IsBlockMetadata: true, Timestamp: 100, Epoch: 1, Round: 1, IsNewEpoch: true},
		{IsBlockMetadata: true, Timestamp: 200, Epoch: 2, Round: 1, IsNewEpoch: true},
	})

	result, err := ExtractFile(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.NewEpochEvents != 2 {
		t.Errorf("NewEpochEvents = %d, want 2", result.NewEpochEvents)
	}
}

func TestExtractFileLogsMonotonicityViolation(t *testing.T) {
	var violated bool
	orig := logMonotonicityViolation
	logMonotonicityViolation = func(path string, prev, next uint64) { violated = true }
	defer func() { logMonotonicityViolation = orig }()

	dir := t.TempDir()
	path := writeRescueFixture(t, dir, []transactionView{
		{IsBlockMetadata: true, Timestamp: 500},
		{IsBlockMetadata: true, Timestamp: 100}, // goes backwards
	})

	if _, err := ExtractFile(path, false); err != nil {
		t.Fatal(err)
	}
	if !violated {
		t.Error("expected monotonicity violation to be logged")
	}
}
