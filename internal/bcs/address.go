package bcs

import "github.com/0lnetwork/graphwarehouse/internal/model"

// ReadAddress decodes a fixed-width account address. Legacy V5 archives
// encode 16-byte addresses; V6/V7 archives also use the 16-byte form at the
// BCS layer (only the textual rendering widens), so a single width serves
// every era this decoder is asked to read.
func (d *Decoder) ReadAddress() (model.Address, error) {
	raw, err := d.ReadFixedBytes(model.AddressLength)
	if err != nil {
		return model.Address{}, err
	}
	var a model.Address
	copy(a[:], raw)
	return a, nil
}

// ReadHash decodes a fixed-width 32-byte hash, the width used for
// transaction hashes.
func (d *Decoder) ReadHash() ([32]byte, error) {
	raw, err := d.ReadFixedBytes(32)
	if err != nil {
		return [32]byte{}, err
	}
	var h [32]byte
	copy(h[:], raw)
	return h, nil
}
