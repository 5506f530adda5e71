// Package crypto manages the actor identity used to sign ledger calls:
// an Ed25519 keypair whose public key is the actor's principal, plus
// deterministic commitment secrets derived from the same seed.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/mymonad/aura/pkg/aura"
)

// DIDPrefix is prepended to the base58 principal to form a DID.
const DIDPrefix = "did:aura:"

// Identity holds the Ed25519 keypair and the principal it represents.
type Identity struct {
	SigningKey ed25519.PrivateKey
	VerifyKey  ed25519.PublicKey
	Principal  aura.Principal
	DID        string
}

// GenerateIdentity creates a new random identity.
func GenerateIdentity() (*Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Ed25519 keypair: %w", err)
	}
	return identityFromSeed(priv.Seed())
}

func identityFromSeed(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes", ed25519.SeedSize)
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	principal, err := aura.PrincipalFromPublicKey(pub)
	if err != nil {
		return nil, err
	}

	return &Identity{
		SigningKey: priv,
		VerifyKey:  pub,
		Principal:  principal,
		DID:        DIDPrefix + principal.String(),
	}, nil
}

// Sign signs msg with the identity's key.
func (i *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(i.SigningKey, msg)
}

// Secret derives the commitment secret for label. The same identity and
// label always give the same secret, so commitments can be reproduced
// from the key file or the mnemonic alone.
func (i *Identity) Secret(label string) aura.Digest {
	h, _ := blake2b.New256(i.SigningKey.Seed())
	h.Write([]byte("aura/secret/v1/"))
	h.Write([]byte(label))

	var d aura.Digest
	copy(d[:], h.Sum(nil))
	return d
}
