package rescue

import (
	"github.com/0lnetwork/graphwarehouse/internal/bcs"
	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// scriptKind discriminates a legacy script-function call by its encoded
// tag byte. Genesis-era rescue files use tags 0-2; V5.2-era files add
// validator and designated-dealer account creation as tags 3-4.
type scriptKind uint8

const (
	scriptBalanceTransfer        scriptKind = 0
	scriptCreateUserByCoinTx     scriptKind = 1
	scriptMinerStateCommit       scriptKind = 2
	scriptCreateValidatorAccount scriptKind = 3
	scriptCreateDesignatedDealer scriptKind = 4
)

// decodeScriptPayload pattern-matches a BCS-encoded legacy script call,
// trying the genesis-era decoder first and falling back to the V5.2
// decoder, per the rescue extraction contract.
func decodeScriptPayload(d *bcs.Decoder) (model.RelationLabel, string, *model.EntryFunctionArgs, error) {
	snapshot := d.Bytes()

	if label, fn, ef, ok := decodeGenesisScript(bcs.NewDecoder(snapshot)); ok {
		return label, fn, ef, nil
	}
	if label, fn, ef, ok := decodeV520Script(bcs.NewDecoder(snapshot)); ok {
		return label, fn, ef, nil
	}
	return model.Configuration(), "unknown::unknown", nil, nil
}

func decodeGenesisScript(d *bcs.Decoder) (model.RelationLabel, string, *model.EntryFunctionArgs, bool) {
	kindByte, err := d.ReadU8()
	if err != nil {
		return model.RelationLabel{}, "", nil, false
	}
	switch scriptKind(kindByte) {
	case scriptBalanceTransfer:
		dest, err := d.ReadAddress()
		if err != nil {
			return model.RelationLabel{}, "", nil, false
		}
		amount, err := d.ReadU64()
		if err != nil {
			return model.RelationLabel{}, "", nil, false
		}
		ef := &model.EntryFunctionArgs{
			Version: model.EntryFunctionV5,
			Module:  "treasury_compliance",
			Func:    "balance_transfer",
			Fields:  map[string]any{"destination": dest, "amount": amount},
		}
		return model.Transfer(dest, amount), "treasury_compliance::balance_transfer", ef, true

	case scriptCreateUserByCoinTx:
		acct, err := d.ReadAddress()
		if err != nil {
			return model.RelationLabel{}, "", nil, false
		}
		ef := &model.EntryFunctionArgs{
			Version: model.EntryFunctionV5,
			Module:  "account_creation",
			Func:    "create_user_by_coin_tx",
			Fields:  map[string]any{"account": acct},
		}
		return model.Onboarding(acct), "account_creation::create_user_by_coin_tx", ef, true

	case scriptMinerStateCommit:
		height, err := d.ReadU64()
		if err != nil {
			return model.RelationLabel{}, "", nil, false
		}
		ef := &model.EntryFunctionArgs{
			Version: model.EntryFunctionV5,
			Module:  "minerstate",
			Func:    "commit",
			Fields:  map[string]any{"height": height},
		}
		return model.Miner(), "minerstate::commit", ef, true

	default:
		return model.RelationLabel{}, "", nil, false
	}
}

func decodeV520Script(d *bcs.Decoder) (model.RelationLabel, string, *model.EntryFunctionArgs, bool) {
	kindByte, err := d.ReadU8()
	if err != nil {
		return model.RelationLabel{}, "", nil, false
	}
	switch scriptKind(kindByte) {
	case scriptCreateValidatorAccount:
		newAccount, err := d.ReadAddress()
		if err != nil {
			return model.RelationLabel{}, "", nil, false
		}
		ef := &model.EntryFunctionArgs{
			Version: model.EntryFunctionV520,
			Module:  "validator_config",
			Func:    "create_validator_account",
			Fields:  map[string]any{"new_account_address": newAccount},
		}
		return model.Onboarding(newAccount), "validator_config::create_validator_account", ef, true

	case scriptCreateDesignatedDealer:
		newAccount, err := d.ReadAddress()
		if err != nil {
			return model.RelationLabel{}, "", nil, false
		}
		ef := &model.EntryFunctionArgs{
			Version: model.EntryFunctionV520,
			Module:  "treasury_compliance",
			Func:    "create_designated_dealer",
			Fields:  map[string]any{"new_account_address": newAccount},
		}
		return model.Onboarding(newAccount), "treasury_compliance::create_designated_dealer", ef, true

	default:
		return model.RelationLabel{}, "", nil, false
	}
}
