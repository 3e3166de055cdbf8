package graph

import "github.com/0lnetwork/graphwarehouse/internal/model"

// renderEntryFunction flattens a versioned entry-function payload into a
// flat property map, the hand-written equivalent of the reflection-style
// serializer Go lacks (see DESIGN.md). Field values already come typed as
// Address/uint64/bool/string from the decoder; only Address needs
// converting to its string form for the graph driver.
func renderEntryFunction(ef *model.EntryFunctionArgs) map[string]any {
	if ef == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(ef.Fields)+2)
	out["module"] = ef.Module
	out["func"] = ef.Func
	for k, v := range ef.Fields {
		if addr, ok := v.(model.Address); ok {
			out[k] = addr.String()
			continue
		}
		out[k] = v
	}
	return out
}

// accountProperties renders the property map for an Account node upsert.
func accountProperties(rec model.AccountStateRecord) map[string]any {
	props := map[string]any{
		"address":                 rec.Address.String(),
		"framework_version":       rec.FrameworkVersion.String(),
		"version":                 rec.Version,
		"epoch":                   rec.Epoch,
		"timestamp":               rec.Timestamp,
		"sequence_num":            rec.SequenceNum,
		"balance":                 rec.Balance,
		"slow_wallet_unlocked":    rec.SlowWalletUnlocked,
		"slow_wallet_transferred": rec.SlowWalletTransferred,
		"slow_wallet_acc":         rec.SlowWalletAcc,
		"donor_voice_acc":         rec.DonorVoiceAcc,
	}
	if rec.MinerHeight != nil {
		props["miner_height"] = *rec.MinerHeight
	}
	return props
}

// transactionProperties renders the property map for a Tx-family edge
// upsert.
func transactionProperties(rec model.TransactionRecord) map[string]any {
	return map[string]any{
		"tx_hash":              hashHex(rec.TxHash),
		"sender":               rec.Sender.String(),
		"recipient":            rec.Recipient().String(),
		"relation":             rec.RelationLabel.ToCypherLabel(),
		"function":             rec.Function,
		"epoch":                rec.Epoch,
		"round":                rec.Round,
		"block_timestamp":      rec.BlockTimestamp,
		"block_datetime":       rec.BlockDatetime,
		"expiration_timestamp": rec.ExpirationTimestamp,
		"args":                 renderEntryFunction(rec.EntryFunction),
	}
}

func hashHex(h [32]byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 2+len(h)*2)
	out[0], out[1] = '0', 'x'
	for i, b := range h {
		out[2+i*2] = hexdigits[b>>4]
		out[2+i*2+1] = hexdigits[b&0x0f]
	}
	return string(out)
}
