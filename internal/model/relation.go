package model

// RelationKind discriminates the RelationLabel tagged variant.
type RelationKind int

const (
	RelationTx RelationKind = iota
	RelationTransfer
	RelationOnboarding
	RelationVouch
	RelationConfiguration
	RelationMiner
)

func (k RelationKind) String() string {
	switch k {
	case RelationTx:
		return "Tx"
	case RelationTransfer:
		return "Tx"
	case RelationOnboarding:
		return "Onboarding"
	case RelationVouch:
		return "Vouch"
	case RelationConfiguration:
		return "Configuration"
	case RelationMiner:
		return "Miner"
	default:
		return "Tx"
	}
}

// RelationLabel is the discriminator chosen for a transaction edge. Only
// Transfer, Onboarding, and Vouch carry a counterparty address.
type RelationLabel struct {
	Kind        RelationKind
	Counterpart Address // valid iff Kind has a counterparty
	Amount      uint64  // valid only for RelationTransfer
}

// Tx constructs the unclassified relation label.
func Tx() RelationLabel { return RelationLabel{Kind: RelationTx} }

// Transfer constructs a value-movement relation label.
func Transfer(to Address, amount uint64) RelationLabel {
	return RelationLabel{Kind: RelationTransfer, Counterpart: to, Amount: amount}
}

// Onboarding constructs an account-creation relation label.
func Onboarding(newAccount Address) RelationLabel {
	return RelationLabel{Kind: RelationOnboarding, Counterpart: newAccount}
}

// Vouch constructs a social-trust relation label.
func Vouch(friend Address) RelationLabel {
	return RelationLabel{Kind: RelationVouch, Counterpart: friend}
}

// Configuration constructs a governance/system-operation relation label.
func Configuration() RelationLabel { return RelationLabel{Kind: RelationConfiguration} }

// Miner constructs a proof-of-work submission relation label.
func Miner() RelationLabel { return RelationLabel{Kind: RelationMiner} }

// ToCypherLabel returns the edge label used in the graph.
func (r RelationLabel) ToCypherLabel() string { return r.Kind.String() }

// HasCounterparty reports whether this label carries a distinct recipient.
func (r RelationLabel) HasCounterparty() bool {
	switch r.Kind {
	case RelationTransfer, RelationOnboarding, RelationVouch:
		return true
	default:
		return false
	}
}

// Recipient returns the counterparty address, falling back to sender when
// the label carries none (matching the source's `unwrap_or(self.sender)`
// behavior for the edge's recipient property).
func (r RelationLabel) Recipient(sender Address) Address {
	if r.HasCounterparty() {
		return r.Counterpart
	}
	return sender
}
