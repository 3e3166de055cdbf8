package txextract

import "github.com/0lnetwork/graphwarehouse/internal/model"

// Fully-qualified V7 entry-function names this extractor recognizes.
const (
	v7AccountTransfer      = "ol_account::transfer"
	v7AccountCreateAccount = "ol_account::create_account"
	v7VouchVouchFor        = "vouch::vouch_for"
	v7VouchInsistVouchFor  = "vouch::insist_vouch_for"
	v7CoinTransfer         = "coin::transfer"
	v7RotateAuthKeyWithCap = "account::rotate_authentication_key_with_rotation_capability"
)

// Fully-qualified V6 entry-function names (the friend field is named
// wanna_be_my_friend in this era, unlike V7's friend).
const (
	v6AccountTransfer      = "ol_account::transfer"
	v6AccountCreateAccount = "ol_account::create_account"
	v6VouchVouchFor        = "vouch::vouch_for"
	v6VouchInsistVouchFor  = "vouch::insist_vouch_for"
	v6CoinTransfer         = "coin::transfer"
)

// DecodeRelationLabel derives a transaction's relation label from its
// decoded entry-function payload, falling back through V7, then V6,
// then Configuration. The events list disambiguates OlAccountTransfer
// between a plain Transfer and an implicit Onboarding.
func DecodeRelationLabel(ef *model.EntryFunctionArgs, events []model.EventRecord) model.RelationLabel {
	if ef != nil {
		if label, ok := tryV7(ef, events); ok {
			return label
		}
		if label, ok := tryV6(ef, events); ok {
			return label
		}
	}
	return model.Configuration()
}

func tryV7(ef *model.EntryFunctionArgs, events []model.EventRecord) (model.RelationLabel, bool) {
	qualified := ef.Module + "::" + ef.Func
	switch qualified {
	case v7AccountTransfer:
		to, amount, ok := transferArgs(ef)
		if !ok {
			return model.RelationLabel{}, false
		}
		if isOnboardingEvent(events) {
			return model.Onboarding(to), true
		}
		return model.Transfer(to, amount), true

	case v7AccountCreateAccount:
		authKey, ok := addressField(ef, "auth_key")
		if !ok {
			return model.RelationLabel{}, false
		}
		return model.Onboarding(authKey), true

	case v7VouchVouchFor, v7VouchInsistVouchFor:
		friend, ok := addressField(ef, "friend")
		if !ok {
			return model.RelationLabel{}, false
		}
		return model.Vouch(friend), true

	case v7CoinTransfer:
		to, amount, ok := transferArgs(ef)
		if !ok {
			return model.RelationLabel{}, false
		}
		return model.Transfer(to, amount), true

	case v7RotateAuthKeyWithCap:
		// Supplemental mapping recovered from the original implementation:
		// rotating a key via a delegated capability records a transfer-
		// shaped edge to the capability offerer, not a Configuration.
		offerer, ok := addressField(ef, "rotation_cap_offerer_address")
		if !ok {
			return model.RelationLabel{}, false
		}
		return model.Transfer(offerer, 0), true
	}
	return model.RelationLabel{}, false
}

func tryV6(ef *model.EntryFunctionArgs, events []model.EventRecord) (model.RelationLabel, bool) {
	qualified := ef.Module + "::" + ef.Func
	switch qualified {
	case v6AccountTransfer:
		to, amount, ok := transferArgs(ef)
		if !ok {
			return model.RelationLabel{}, false
		}
		if isOnboardingEvent(events) {
			return model.Onboarding(to), true
		}
		return model.Transfer(to, amount), true

	case v6AccountCreateAccount:
		authKey, ok := addressField(ef, "auth_key")
		if !ok {
			return model.RelationLabel{}, false
		}
		return model.Onboarding(authKey), true

	case v6VouchVouchFor, v6VouchInsistVouchFor:
		friend, ok := addressField(ef, "wanna_be_my_friend")
		if !ok {
			return model.RelationLabel{}, false
		}
		return model.Vouch(friend), true

	case v6CoinTransfer:
		to, amount, ok := transferArgs(ef)
		if !ok {
			return model.RelationLabel{}, false
		}
		return model.Transfer(to, amount), true
	}
	return model.RelationLabel{}, false
}

func transferArgs(ef *model.EntryFunctionArgs) (model.Address, uint64, bool) {
	to, ok := addressField(ef, "to")
	if !ok {
		return model.Address{}, 0, false
	}
	amount, ok := u64Field(ef, "amount")
	if !ok {
		return model.Address{}, 0, false
	}
	return to, amount, true
}

func addressField(ef *model.EntryFunctionArgs, name string) (model.Address, bool) {
	v, ok := ef.Fields[name]
	if !ok {
		return model.Address{}, false
	}
	addr, ok := v.(model.Address)
	return addr, ok
}

func u64Field(ef *model.EntryFunctionArgs, name string) (uint64, bool) {
	v, ok := ef.Fields[name]
	if !ok {
		return 0, false
	}
	u, ok := v.(uint64)
	return u, ok
}

// isOnboardingEvent reports whether the event list contains all of
// Withdraw, Deposit, and Onboard — the signature of an ol_account
// transfer that implicitly created the recipient account.
func isOnboardingEvent(events []model.EventRecord) bool {
	var hasWithdraw, hasDeposit, hasOnboard bool
	for _, e := range events {
		switch e.Kind {
		case model.EventWithdraw:
			hasWithdraw = true
		case model.EventDeposit:
			hasDeposit = true
		case model.EventOnboard:
			hasOnboard = true
		}
	}
	return hasWithdraw && hasDeposit && hasOnboard
}
