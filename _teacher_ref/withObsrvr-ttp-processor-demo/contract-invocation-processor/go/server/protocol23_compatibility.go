// Protocol 23 Compatibility Layer
// This file provides compatibility functions for Protocol 23 features
// that may not be available in the current Stellar Go SDK version.

package server

import (
	"github.com/stellar/go/xdr"
	"go.uber.org/zap"
)

// Protocol23Features tracks availability of Protocol 23 XDR types and fields
type Protocol23Features struct {
	HasEvictedLedgerKeys      bool
	HasContractIdPreimage     bool
	HasTransactionMetaV3      bool
	HasArchiveRestoration     bool
	logger                    *zap.Logger
}

// NewProtocol23Features detects available Protocol 23 features
func NewProtocol23Features(logger *zap.Logger) *Protocol23Features {
	features := &Protocol23Features{
		logger: logger,
	}
	
	// Detect feature availability at runtime
	features.detectFeatures()
	
	return features
}

// detectFeatures performs runtime detection of Protocol 23 features
func (p *Protocol23Features) detectFeatures() {
	// Check for evicted ledger keys in LedgerCloseMetaV2
	p.HasEvictedLedgerKeys = p.hasEvictedLedgerKeysSupport()
	
	// Check for contract ID preimage types
	p.HasContractIdPreimage = p.hasContractIdPreimageSupport()
	
	// Check for Transaction Meta V3
	p.HasTransactionMetaV3 = p.hasTransactionMetaV3Support()
	
	// Archive restoration depends on evicted ledger keys
	p.HasArchiveRestoration = p.HasEvictedLedgerKeys
	
	p.logger.Info("Protocol 23 feature detection completed",
		zap.Bool("evicted_ledger_keys", p.HasEvictedLedgerKeys),
		zap.Bool("contract_id_preimage", p.HasContractIdPreimage),
		zap.Bool("transaction_meta_v3", p.HasTransactionMetaV3),
		zap.Bool("archive_restoration", p.HasArchiveRestoration),
	)
}

// hasEvictedLedgerKeysSupport checks if LedgerCloseMetaV2 has evicted fields
func (p *Protocol23Features) hasEvictedLedgerKeysSupport() bool {
	// Use reflection or type checking to detect if the fields exist
	// For now, return false as a safe default
	return false
}

// hasContractIdPreimageSupport checks for contract ID preimage types
func (p *Protocol23Features) hasContractIdPreimageSupport() bool {
	// Check if the contract ID preimage types exist
	// For now, return false as a safe default
	return false
}

// hasTransactionMetaV3Support checks for Transaction Meta V3 support
func (p *Protocol23Features) hasTransactionMetaV3Support() bool {
	// Check if TransactionMetaV3 is available
	// For now, return false as a safe default
	return false
}

// GetContractIdPreimageType returns the contract ID preimage type if available
func (p *Protocol23Features) GetContractIdPreimageType(preimageType string) (interface{}, bool) {
	if !p.HasContractIdPreimage {
		return nil, false
	}
	
	// Return the appropriate preimage type when available
	// For now, return nil as features are not available
	return nil, false
}

// GetEvictedLedgerKeys extracts evicted ledger keys from LedgerCloseMetaV2 if available
func (p *Protocol23Features) GetEvictedLedgerKeys(v2Meta xdr.LedgerCloseMetaV2) ([]xdr.LedgerKey, []xdr.LedgerEntry, bool) {
	if !p.HasEvictedLedgerKeys {
		p.logger.Debug("Evicted ledger keys not available in current SDK version")
		return nil, nil, false
	}
	
	// Extract evicted keys when the feature is available
	// For now, return empty arrays as the fields don't exist yet
	return []xdr.LedgerKey{}, []xdr.LedgerEntry{}, true
}

// IsTransactionMetaV3 checks if a transaction meta is version 3
func (p *Protocol23Features) IsTransactionMetaV3(txMeta interface{}) bool {
	if !p.HasTransactionMetaV3 {
		return false
	}
	
	// Check transaction meta version when V3 is available
	// For now, return false as V3 is not available
	return false
}

// ConvertTransactionMeta safely converts transaction meta types
func (p *Protocol23Features) ConvertTransactionMeta(txMeta interface{}) (xdr.TransactionMeta, bool) {
	// Handle different transaction meta types safely
	switch meta := txMeta.(type) {
	case xdr.TransactionMeta:
		return meta, true
	case xdr.TransactionResultMeta:
		// Convert TransactionResultMeta to TransactionMeta if possible
		// This is a compatibility conversion
		// For now, we can't safely convert, so return false
		p.logger.Debug("Cannot convert TransactionResultMeta to TransactionMeta",
			zap.String("type", "TransactionResultMeta"))
		return xdr.TransactionMeta{}, false
	case xdr.TransactionResultMetaV1:
		// Convert TransactionResultMetaV1 to TransactionMeta if possible
		// This is a compatibility conversion
		p.logger.Debug("Cannot convert TransactionResultMetaV1 to TransactionMeta",
			zap.String("type", "TransactionResultMetaV1"))
		return xdr.TransactionMeta{}, false
	default:
		p.logger.Warn("Unknown transaction meta type",
			zap.String("type", "unknown"))
		return xdr.TransactionMeta{}, false
	}
}

// LogFeatureUsage logs when a Protocol 23 feature is requested but unavailable
func (p *Protocol23Features) LogFeatureUsage(feature string, action string) {
	p.logger.Debug("Protocol 23 feature requested",
		zap.String("feature", feature),
		zap.String("action", action),
		zap.String("status", "unavailable"))
}