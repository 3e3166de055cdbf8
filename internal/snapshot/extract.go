package snapshot

import (
	"fmt"
	"os"

	"github.com/0lnetwork/graphwarehouse/internal/bcs"
	"github.com/0lnetwork/graphwarehouse/internal/errtag"
	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// Canonical resource type tags looked up within each account blob. Absent
// resources yield default field values, never a failure.
const (
	resourceAccount    = "0x1::account::Account"
	resourceCoinStore  = "0x1::coin::CoinStore"
	resourceSlowWallet = "0x1::slow_wallet::SlowWallet"
	resourceDonorVoice = "0x1::donor_voice::Registry"
	resourceTowerState = "0x1::tower_state::TowerState"
)

// resourceBlob is one (type tag, raw bytes) entry inside an account blob.
type resourceBlob struct {
	TypeTag string
	Bytes   []byte
}

// accountBlob is one account's full resource set as stored in a state
// snapshot chunk: a fixed-width address followed by a ULEB128-counted
// vector of resource blobs.
type accountBlob struct {
	Address   model.Address
	Resources map[string]resourceBlob
}

func decodeAccountBlob(d *bcs.Decoder) (*accountBlob, error) {
	addr, err := d.ReadAddress()
	if err != nil {
		return nil, fmt.Errorf("snapshot: read account address: %w", err)
	}
	n, err := d.ReadVecLen()
	if err != nil {
		return nil, fmt.Errorf("snapshot: read resource count: %w", err)
	}
	resources := make(map[string]resourceBlob, n)
	for i := 0; i < n; i++ {
		tag, err := d.ReadString()
		if err != nil {
			return nil, fmt.Errorf("snapshot: read resource tag %d: %w", i, err)
		}
		raw, err := d.ReadBytes()
		if err != nil {
			return nil, fmt.Errorf("snapshot: read resource bytes %d: %w", i, err)
		}
		resources[tag] = resourceBlob{TypeTag: tag, Bytes: raw}
	}
	return &accountBlob{Address: addr, Resources: resources}, nil
}

// Chunk is a fully decoded sequence of account blobs from a single chunk
// file, wrapped with the epoch/version/timestamp context the manifest
// associates with that chunk.
type chunkHeader struct {
	Version   uint64
	Epoch     uint64
	Timestamp uint64
}

func decodeChunk(path string) ([]*accountBlob, chunkHeader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, chunkHeader{}, fmt.Errorf("snapshot: read chunk %q: %w", path, err)
	}
	d := bcs.NewDecoder(raw)

	version, err := d.ReadU64()
	if err != nil {
		return nil, chunkHeader{}, fmt.Errorf("snapshot: read chunk version: %w: %w", err, errtag.ErrParse)
	}
	epoch, err := d.ReadU64()
	if err != nil {
		return nil, chunkHeader{}, fmt.Errorf("snapshot: read chunk epoch: %w: %w", err, errtag.ErrParse)
	}
	timestamp, err := d.ReadU64()
	if err != nil {
		return nil, chunkHeader{}, fmt.Errorf("snapshot: read chunk timestamp: %w: %w", err, errtag.ErrParse)
	}
	header := chunkHeader{Version: version, Epoch: epoch, Timestamp: timestamp}

	count, err := d.ReadVecLen()
	if err != nil {
		return nil, header, fmt.Errorf("snapshot: read blob count: %w: %w", err, errtag.ErrParse)
	}
	blobs := make([]*accountBlob, 0, count)
	for i := 0; i < count; i++ {
		blob, err := decodeAccountBlob(d)
		if err != nil {
			return nil, header, fmt.Errorf("snapshot: decode blob %d in %q: %w: %w", i, path, err, errtag.ErrParse)
		}
		blobs = append(blobs, blob)
	}
	return blobs, header, nil
}

// ExtractChunk decodes one chunk file into AccountStateRecords. Accounts
// whose blob lacks the core account resource are silently skipped; every
// other resource is looked up by canonical type name with defaults on
// absence, per the spec's missing-resource policy.
func ExtractChunk(path string, fw model.FrameworkVersion, legacy bool) ([]model.AccountStateRecord, int, error) {
	blobs, header, err := decodeChunk(path)
	if err != nil {
		return nil, 0, err
	}

	records := make([]model.AccountStateRecord, 0, len(blobs))
	skipped := 0
	for _, blob := range blobs {
		rec, ok, err := decodeAccountRecord(blob, header, fw, legacy)
		if err != nil {
			return nil, skipped, fmt.Errorf("snapshot: decode account %s: %w", blob.Address, err)
		}
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func decodeAccountRecord(blob *accountBlob, header chunkHeader, fw model.FrameworkVersion, legacy bool) (model.AccountStateRecord, bool, error) {
	accountRes, ok := blob.Resources[resourceAccount]
	if !ok {
		return model.AccountStateRecord{}, false, nil
	}

	addr := blob.Address
	if legacy {
		widened, err := model.NormalizeLegacyAddress(blob.Address[:])
		if err != nil {
			return model.AccountStateRecord{}, false, err
		}
		addr = widened
	}

	seq, err := decodeSequenceNumber(accountRes.Bytes)
	if err != nil {
		return model.AccountStateRecord{}, false, err
	}

	rec := model.AccountStateRecord{
		Address:          addr,
		FrameworkVersion: fw,
		Version:          header.Version,
		Epoch:            header.Epoch,
		Timestamp:        header.Timestamp,
		SequenceNum:      seq,
	}

	if cs, ok := blob.Resources[resourceCoinStore]; ok {
		bal, err := decodeCoinStoreBalance(cs.Bytes)
		if err != nil {
			return model.AccountStateRecord{}, false, err
		}
		rec.Balance = bal
	}

	if sw, ok := blob.Resources[resourceSlowWallet]; ok {
		unlocked, transferred, err := decodeSlowWallet(sw.Bytes)
		if err != nil {
			return model.AccountStateRecord{}, false, err
		}
		rec.SlowWalletAcc = true
		rec.SlowWalletUnlocked = unlocked
		rec.SlowWalletTransferred = transferred
	}

	if _, ok := blob.Resources[resourceDonorVoice]; ok {
		rec.DonorVoiceAcc = true
	}

	if tw, ok := blob.Resources[resourceTowerState]; ok {
		height, err := decodeU64Field(tw.Bytes, 0)
		if err != nil {
			return model.AccountStateRecord{}, false, err
		}
		rec.MinerHeight = &height
	}

	return rec, true, nil
}

func decodeSequenceNumber(raw []byte) (uint64, error) {
	return decodeU64Field(raw, 0)
}

// decodeCoinStoreBalance reads the first u64 field of a CoinStore
// resource (the coin amount); the frozen/deposit-events fields that
// follow it are not needed by this warehouse.
func decodeCoinStoreBalance(raw []byte) (uint64, error) {
	return decodeU64Field(raw, 0)
}

// decodeSlowWallet reads the (unlocked, transferred) u64 pair from a
// SlowWallet resource.
func decodeSlowWallet(raw []byte) (unlocked, transferred uint64, err error) {
	d := bcs.NewDecoder(raw)
	unlocked, err = d.ReadU64()
	if err != nil {
		return 0, 0, fmt.Errorf("snapshot: decode slow wallet unlocked: %w", err)
	}
	transferred, err = d.ReadU64()
	if err != nil {
		return 0, 0, fmt.Errorf("snapshot: decode slow wallet transferred: %w", err)
	}
	return unlocked, transferred, nil
}

// decodeU64Field reads the u64 at the given field offset (0-indexed) of a
// resource that is a flat sequence of u64 fields, which covers every
// resource this extractor reads a single field from.
func decodeU64Field(raw []byte, field int) (uint64, error) {
	d := bcs.NewDecoder(raw)
	for i := 0; i < field; i++ {
		if _, err := d.ReadU64(); err != nil {
			return 0, fmt.Errorf("snapshot: skip field %d: %w", i, err)
		}
	}
	v, err := d.ReadU64()
	if err != nil {
		return 0, fmt.Errorf("snapshot: read field %d: %w", field, err)
	}
	return v, nil
}
