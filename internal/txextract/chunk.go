// Package txextract implements the Transaction Extractor (C3): parsing
// transaction archives into a uniform TransactionRecord + EventRecord
// stream, classifying each record by relation label.
package txextract

import (
	"fmt"
	"os"

	"github.com/0lnetwork/graphwarehouse/internal/bcs"
	"github.com/0lnetwork/graphwarehouse/internal/errtag"
	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// entryKind discriminates the two record shapes a transaction chunk
// interleaves.
type entryKind uint8

const (
	entryBlockMetadata entryKind = iota
	entryUserTransaction
)

// fieldKind discriminates an entry-function argument's decoded type.
type fieldKind uint8

const (
	fieldAddress fieldKind = iota
	fieldU64
	fieldBool
	fieldString
)

func decodeEntryFunction(d *bcs.Decoder) (*model.EntryFunctionArgs, error) {
	present, err := d.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("txextract: read entry-function presence: %w", err)
	}
	if !present {
		return nil, nil
	}
	versionTag, err := d.ReadU8()
	if err != nil {
		return nil, fmt.Errorf("txextract: read entry-function version: %w", err)
	}
	module, err := d.ReadString()
	if err != nil {
		return nil, fmt.Errorf("txextract: read entry-function module: %w", err)
	}
	fn, err := d.ReadString()
	if err != nil {
		return nil, fmt.Errorf("txextract: read entry-function name: %w", err)
	}
	n, err := d.ReadVecLen()
	if err != nil {
		return nil, fmt.Errorf("txextract: read entry-function field count: %w", err)
	}
	fields := make(map[string]any, n)
	for i := 0; i < n; i++ {
		name, err := d.ReadString()
		if err != nil {
			return nil, fmt.Errorf("txextract: read field %d name: %w", i, err)
		}
		kind, err := d.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("txextract: read field %d kind: %w", i, err)
		}
		switch fieldKind(kind) {
		case fieldAddress:
			v, err := d.ReadAddress()
			if err != nil {
				return nil, fmt.Errorf("txextract: read field %d address: %w", i, err)
			}
			fields[name] = v
		case fieldU64:
			v, err := d.ReadU64()
			if err != nil {
				return nil, fmt.Errorf("txextract: read field %d u64: %w", i, err)
			}
			fields[name] = v
		case fieldBool:
			v, err := d.ReadBool()
			if err != nil {
				return nil, fmt.Errorf("txextract: read field %d bool: %w", i, err)
			}
			fields[name] = v
		case fieldString:
			v, err := d.ReadString()
			if err != nil {
				return nil, fmt.Errorf("txextract: read field %d string: %w", i, err)
			}
			fields[name] = v
		default:
			return nil, fmt.Errorf("txextract: field %d has unknown kind %d", i, kind)
		}
	}

	var ver model.EntryFunctionVersion
	switch versionTag {
	case 1:
		ver = model.EntryFunctionV5
	case 2:
		ver = model.EntryFunctionV520
	case 3:
		ver = model.EntryFunctionV6
	case 4:
		ver = model.EntryFunctionV7
	default:
		ver = model.EntryFunctionNone
	}
	return &model.EntryFunctionArgs{Version: ver, Module: module, Func: fn, Fields: fields}, nil
}

func decodeEvents(d *bcs.Decoder, txHash [32]byte) ([]model.EventRecord, error) {
	n, err := d.ReadVecLen()
	if err != nil {
		return nil, fmt.Errorf("txextract: read event count: %w", err)
	}
	events := make([]model.EventRecord, 0, n)
	for i := 0; i < n; i++ {
		typeTag, err := d.ReadString()
		if err != nil {
			return nil, fmt.Errorf("txextract: read event %d type: %w", i, err)
		}
		payload, err := d.ReadBytes()
		if err != nil {
			return nil, fmt.Errorf("txextract: read event %d payload: %w", i, err)
		}
		if typeTag == eventTypeBlockAnnounce {
			// Block-announce events are dropped per the extraction
			// contract; they carry no information this warehouse models.
			continue
		}
		events = append(events, model.EventRecord{
			TxHash:        txHash,
			Kind:          classifyEvent(typeTag),
			CanonicalType: typeTag,
			Payload:       payload,
		})
	}
	return events, nil
}

const (
	eventTypeBlockAnnounce = "0x1::block::NewBlockEvent"
	eventTypeWithdraw      = "0x1::coin::WithdrawEvent"
	eventTypeDeposit       = "0x1::coin::DepositEvent"
	eventTypeCoinRegister  = "0x1::coin::CoinRegisterEvent"
)

func classifyEvent(typeTag string) model.EventKind {
	switch typeTag {
	case eventTypeWithdraw:
		return model.EventWithdraw
	case eventTypeDeposit:
		return model.EventDeposit
	case eventTypeCoinRegister:
		return model.EventOnboard
	default:
		return model.EventOther
	}
}

// rollingContext is the most recently seen block-metadata timing triple,
// carried forward onto every user transaction until the next block
// boundary.
type rollingContext struct {
	epoch     uint64
	round     uint64
	timestamp uint64
}

// DecodeChunk parses one transaction chunk file: an interleaved sequence
// of block-metadata and user-transaction entries, three logically
// parallel vectors (transaction, info, events) collapsed into a single
// record per user transaction by this decoder.
func DecodeChunk(path string) ([]model.TransactionRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("txextract: read chunk %q: %w", path, err)
	}
	d := bcs.NewDecoder(raw)

	n, err := d.ReadVecLen()
	if err != nil {
		return nil, fmt.Errorf("txextract: read entry count in %q: %w: %w", path, err, errtag.ErrParse)
	}

	var ctx rollingContext
	records := make([]model.TransactionRecord, 0, n)
	for i := 0; i < n; i++ {
		kind, err := d.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("txextract: read entry %d kind in %q: %w: %w", i, path, err, errtag.ErrParse)
		}
		switch entryKind(kind) {
		case entryBlockMetadata:
			epoch, err := d.ReadU64()
			if err != nil {
				return nil, fmt.Errorf("txextract: read block epoch: %w: %w", err, errtag.ErrParse)
			}
			round, err := d.ReadU64()
			if err != nil {
				return nil, fmt.Errorf("txextract: read block round: %w: %w", err, errtag.ErrParse)
			}
			ts, err := d.ReadU64()
			if err != nil {
				return nil, fmt.Errorf("txextract: read block timestamp: %w: %w", err, errtag.ErrParse)
			}
			ctx = rollingContext{epoch: epoch, round: round, timestamp: ts}

		case entryUserTransaction:
			rec, err := decodeUserTransaction(d, ctx)
			if err != nil {
				return nil, fmt.Errorf("txextract: decode transaction %d in %q: %w: %w", i, path, err, errtag.ErrParse)
			}
			records = append(records, rec)

		default:
			return nil, fmt.Errorf("txextract: entry %d in %q has unknown kind %d", i, path, kind)
		}
	}
	return records, nil
}
