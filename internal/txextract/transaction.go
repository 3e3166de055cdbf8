package txextract

import (
	"fmt"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/bcs"
	"github.com/0lnetwork/graphwarehouse/internal/logging"
	"github.com/0lnetwork/graphwarehouse/internal/model"
	"go.uber.org/zap"
)

func decodeUserTransaction(d *bcs.Decoder, ctx rollingContext) (model.TransactionRecord, error) {
	txHash, err := d.ReadHash()
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("read tx_hash: %w", err)
	}
	infoHash, err := d.ReadHash()
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("read info hash: %w", err)
	}
	sender, err := d.ReadAddress()
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("read sender: %w", err)
	}
	if _, err := d.ReadU64(); err != nil { // sequence number, not carried on the record
		return model.TransactionRecord{}, fmt.Errorf("read sequence number: %w", err)
	}
	expiration, err := d.ReadU64()
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("read expiration timestamp: %w", err)
	}
	function, err := d.ReadString()
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("read function: %w", err)
	}
	ef, err := decodeEntryFunction(d)
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("read entry function: %w", err)
	}
	events, err := decodeEvents(d, txHash)
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("read events: %w", err)
	}

	if infoHash != txHash {
		// ContractViolation: informational only, the record is still
		// emitted — the parallel vectors are treated as authoritative.
		logContractViolation(txHash, infoHash)
	}

	rec := model.TransactionRecord{
		TxHash:              txHash,
		Sender:              sender,
		Function:            function,
		Epoch:               ctx.epoch,
		Round:               ctx.round,
		BlockTimestamp:      ctx.timestamp,
		BlockDatetime:       time.UnixMicro(int64(ctx.timestamp)).UTC(),
		ExpirationTimestamp: expiration,
		EntryFunction:       ef,
		Events:              events,
	}
	rec.RelationLabel = DecodeRelationLabel(ef, events)
	return rec, nil
}

// logContractViolation reports a tx_hash/info_hash mismatch (spec.md §7
// ContractViolation handling: log and continue with the raw tx_hash).
// Kept as a var seam so tests can exercise decodeUserTransaction without
// depending on zap setup.
var logContractViolation = func(txHash, infoHash [32]byte) {
	logging.L().Warn("txextract: tx_hash/info_hash mismatch",
		zap.String("tx_hash", fmt.Sprintf("%x", txHash)),
		zap.String("info_hash", fmt.Sprintf("%x", infoHash)))
}
