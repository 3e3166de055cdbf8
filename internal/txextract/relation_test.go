package txextract

import (
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

func TestDecodeRelationLabelV7Transfer(t *testing.T) {
	to := model.Address{0x01}
	ef := &model.EntryFunctionArgs{
		Version: model.EntryFunctionV7,
		Module:  "ol_account",
		Func:    "transfer",
		Fields:  map[string]any{"to": to, "amount": uint64(100)},
	}
	label := DecodeRelationLabel(ef, nil)
	if label.Kind != model.RelationTransfer || label.Counterpart != to || label.Amount != 100 {
		t.Fatalf("got %+v, want Transfer(%v, 100)", label, to)
	}
}

func TestDecodeRelationLabelV7TransferBecomesOnboardingWithEvents(t *testing.T) {
	to := model.Address{0x02}
	ef := &model.EntryFunctionArgs{
		Module: "ol_account",
		Func:   "transfer",
		Fields: map[string]any{"to": to, "amount": uint64(5)},
	}
	events := []model.EventRecord{
		{Kind: model.EventWithdraw},
		{Kind: model.EventDeposit},
		{Kind: model.EventOnboard},
	}
	label := DecodeRelationLabel(ef, events)
	if label.Kind != model.RelationOnboarding || label.Counterpart != to {
		t.Fatalf("got %+v, want Onboarding(%v)", label, to)
	}
}

func TestDecodeRelationLabelV6VouchUsesWannaBeMyFriendField(t *testing.T) {
	friend := model.Address{0x03}
	ef := &model.EntryFunctionArgs{
		Module: "vouch",
		Func:   "vouch_for",
		Fields: map[string]any{"wanna_be_my_friend": friend},
	}
	label := DecodeRelationLabel(ef, nil)
	if label.Kind != model.RelationVouch || label.Counterpart != friend {
		t.Fatalf("got %+v, want Vouch(%v)", label, friend)
	}
}

func TestDecodeRelationLabelFallsBackToConfiguration(t *testing.T) {
	ef := &model.EntryFunctionArgs{Module: "unknown", Func: "call", Fields: map[string]any{}}
	label := DecodeRelationLabel(ef, nil)
	if label.Kind != model.RelationConfiguration {
		t.Fatalf("got %+v, want Configuration", label)
	}
}

func TestDecodeRelationLabelNilEntryFunctionIsConfiguration(t *testing.T) {
	label := DecodeRelationLabel(nil, nil)
	if label.Kind != model.RelationConfiguration {
		t.Fatalf("got %+v, want Configuration", label)
	}
}

func TestDecodeRelationLabelRotationCapabilityIsTransfer(t *testing.T) {
	offerer := model.Address{0x09}
	ef := &model.EntryFunctionArgs{
		Module: "account",
		Func:   "rotate_authentication_key_with_rotation_capability",
		Fields: map[string]any{"rotation_cap_offerer_address": offerer},
	}
	label := DecodeRelationLabel(ef, nil)
	if label.Kind != model.RelationTransfer || label.Counterpart != offerer {
		t.Fatalf("got %+v, want Transfer(%v, 0)", label, offerer)
	}
}
