package rescue

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/bcs"
	"github.com/0lnetwork/graphwarehouse/internal/errtag"
	"github.com/0lnetwork/graphwarehouse/internal/logging"
	"github.com/0lnetwork/graphwarehouse/internal/model"
	"go.uber.org/zap"
)

// transactionView is the legacy JSON shape of one entry in a rescue file:
// a list of these objects per file, as emitted by the V5-era node API.
type transactionView struct {
	Version             uint64 `json:"version"`
	Hash                string `json:"hash"`
	SenderAddress       string `json:"sender,omitempty"`
	SequenceNumber      uint64 `json:"sequence_number,omitempty"`
	ExpirationTimestamp uint64 `json:"expiration_timestamp_secs,omitempty"`
	RawTxnBytes         string `json:"bytes"`
	VMStatus            struct {
		Type string `json:"type"`
	} `json:"vm_status"`
	// IsBlockMetadata is true for the synthetic block-prologue entries
	// interleaved with user transactions in a rescue file.
	IsBlockMetadata bool   `json:"is_block_metadata,omitempty"`
	Timestamp       uint64 `json:"timestamp,omitempty"`
	Epoch           uint64 `json:"epoch,omitempty"`
	Round           uint64 `json:"round,omitempty"`
	IsNewEpoch      bool   `json:"is_new_epoch,omitempty"`
}

// ExtractResult is the output of extracting one rescue JSON file: the
// decoded transaction records and a count of new-epoch events observed
// (counted, per spec, but not otherwise reflected in the output).
type ExtractResult struct {
	Records        []model.TransactionRecord
	NewEpochEvents int
}

// ExtractFile parses one rescue JSON file (a flat list of transactionView
// objects) into the uniform TransactionRecord stream, advancing a rolling
// timestamp from block-metadata entries and logging any monotonicity
// violation rather than failing.
func ExtractFile(path string, includeMiner bool) (ExtractResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("rescue: read %q: %w", path, err)
	}
	var views []transactionView
	if err := json.Unmarshal(raw, &views); err != nil {
		return ExtractResult{}, fmt.Errorf("rescue: decode %q: %w: %w", path, err, errtag.ErrParse)
	}

	var result ExtractResult
	var rollingTimestamp uint64
	var ctx rollingContext

	for _, v := range views {
		if v.IsBlockMetadata {
			if v.Timestamp < rollingTimestamp {
				logMonotonicityViolation(path, rollingTimestamp, v.Timestamp)
			} else {
				rollingTimestamp = v.Timestamp
			}
			ctx = rollingContext{epoch: v.Epoch, round: v.Round, timestamp: v.Timestamp}
			if v.IsNewEpoch {
				result.NewEpochEvents++
			}
			continue
		}

		rec, ok, err := decodeTransactionView(v, ctx, includeMiner)
		if err != nil {
			logParseError(path, v.Hash, err)
			continue
		}
		if !ok {
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

type rollingContext struct {
	epoch     uint64
	round     uint64
	timestamp uint64
}

func decodeTransactionView(v transactionView, ctx rollingContext, includeMiner bool) (model.TransactionRecord, bool, error) {
	hashBytes, err := decodeNarrowHash(v.Hash)
	if err != nil {
		return model.TransactionRecord{}, false, fmt.Errorf("decode hash %q: %w", v.Hash, err)
	}

	sender, err := model.ParseAddress(v.SenderAddress)
	if err != nil {
		return model.TransactionRecord{}, false, fmt.Errorf("decode sender %q: %w", v.SenderAddress, err)
	}

	rawBytes, err := hex.DecodeString(trimHexPrefix(v.RawTxnBytes))
	if err != nil {
		return model.TransactionRecord{}, false, fmt.Errorf("decode raw txn bytes: %w", err)
	}

	label, function, ef, err := decodeScriptPayload(bcs.NewDecoder(rawBytes))
	if err != nil {
		return model.TransactionRecord{}, false, fmt.Errorf("decode script payload: %w", err)
	}

	if label.Kind == model.RelationMiner && !includeMiner {
		// Miner records are emitted only when configured; the default
		// loader policy drops them to contain payload size.
		return model.TransactionRecord{}, false, nil
	}

	rec := model.TransactionRecord{
		TxHash:              hashBytes,
		Sender:              sender,
		RelationLabel:       label,
		Function:            function,
		Epoch:               ctx.epoch,
		Round:               ctx.round,
		BlockTimestamp:      ctx.timestamp,
		BlockDatetime:       time.Unix(0, int64(ctx.timestamp)*1000).UTC(),
		ExpirationTimestamp: v.ExpirationTimestamp,
		EntryFunction:       ef,
	}
	return rec, true, nil
}

// decodeNarrowHash converts a hex-encoded legacy hash string to the
// narrow 32-byte form via a byte-order-safe round trip rather than a raw
// copy.
func decodeNarrowHash(s string) ([32]byte, error) {
	var h [32]byte
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return h, err
	}
	if len(raw) > 32 {
		raw = raw[len(raw)-32:]
	}
	copy(h[32-len(raw):], raw)
	return h, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// logMonotonicityViolation and logParseError report the two per-record
// error-taxonomy cases this file's decode loop tolerates (spec.md §7
// OrderingViolation and ParseError handling: log and continue). Tests
// override these vars to assert they fired.
var (
	logMonotonicityViolation = func(path string, prev, next uint64) {
		logging.L().Warn("rescue: timestamp monotonicity violation",
			zap.String("path", path), zap.Uint64("prev", prev), zap.Uint64("next", next))
	}
	logParseError = func(path, hash string, err error) {
		logging.L().Error("rescue: record parse error",
			zap.String("path", path), zap.String("hash", hash), zap.Error(err))
	}
)
