package model

// OwnerLink attributes an on-chain Account to an off-chain owner alias,
// sourced from a whitepages enrichment file.
type OwnerLink struct {
	Address     Address
	Owner       string
	AddressNote string
}

// OnRampLink attributes an on-chain Account to the exchange SwapAccount
// that onboarded it, sourced from an exchange onboarding enrichment file.
type OnRampLink struct {
	Address Address
	UserID  int64
}
