package model

import "time"

// FrameworkVersion tags the on-chain Move framework era that produced an
// archive.
type FrameworkVersion int

const (
	FrameworkUnknown FrameworkVersion = iota
	FrameworkV5
	FrameworkV6
	FrameworkV7
)

func (v FrameworkVersion) String() string {
	switch v {
	case FrameworkV5:
		return "V5"
	case FrameworkV6:
		return "V6"
	case FrameworkV7:
		return "V7"
	default:
		return "Unknown"
	}
}

// TransactionRecord is the uniform output of the Transaction Extractor (C3)
// and the JSON Rescue Extractor (C4).
type TransactionRecord struct {
	TxHash               [32]byte
	Sender                Address
	RelationLabel         RelationLabel
	Function              string // module::function qualified name
	Epoch                 uint64
	Round                 uint64
	BlockTimestamp        uint64 // microseconds since epoch
	BlockDatetime         time.Time
	ExpirationTimestamp   uint64
	EntryFunction         *EntryFunctionArgs
	Events                []EventRecord
}

// Recipient returns the edge's recipient property, falling back to the
// sender when the relation label carries no counterparty.
func (t TransactionRecord) Recipient() Address {
	return t.RelationLabel.Recipient(t.Sender)
}

// AccountStateRecord is the uniform output of the Snapshot Extractor (C2).
// Exactly one record exists per (Address, Version) pair.
type AccountStateRecord struct {
	Address               Address
	FrameworkVersion      FrameworkVersion
	Version               uint64 // monotonic chain ordinal
	Epoch                 uint64
	Timestamp             uint64
	SequenceNum           uint64
	Balance               uint64 // integer base units
	SlowWalletUnlocked    uint64
	SlowWalletTransferred uint64
	SlowWalletAcc         bool
	DonorVoiceAcc         bool
	MinerHeight           *uint64
}
