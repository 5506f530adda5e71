package crypto

import (
	"errors"

	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned when an invalid BIP-39 mnemonic phrase is provided.
var ErrInvalidMnemonic = errors.New("crypto: invalid mnemonic phrase")

// NewIdentityWithMnemonic generates a new identity with a 24-word BIP-39
// mnemonic for recovery. The mnemonic should be written down by the user.
func NewIdentityWithMnemonic() (*Identity, string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, "", err
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", err
	}

	identity, err := IdentityFromMnemonic(mnemonic)
	if err != nil {
		return nil, "", err
	}

	return identity, mnemonic, nil
}

// IdentityFromMnemonic recovers an identity from a BIP-39 mnemonic.
// The same mnemonic always produces the same principal and secrets.
func IdentityFromMnemonic(mnemonic string) (*Identity, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	return identityFromSeed(seed[:32])
}
