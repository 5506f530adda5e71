package zkproof

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"github.com/mymonad/aura/pkg/aura"
)

var (
	// ErrCommitmentMismatch is returned when a secret does not open the
	// commitment it is asked to prove.
	ErrCommitmentMismatch = errors.New("zkproof: secret does not open commitment")

	// ErrInputCount is returned when a circuit receives the wrong number of
	// public inputs.
	ErrInputCount = errors.New("zkproof: wrong number of public inputs")

	// ErrMissingDomain is returned when a statement circuit is compiled
	// without its domain tag.
	ErrMissingDomain = errors.New("zkproof: statement circuit has no domain tag")
)

// toElement reduces a digest into the BN254 scalar field.
func toElement(d aura.Digest) fr.Element {
	var e fr.Element
	e.SetBytes(d[:])
	return e
}

// toBig returns the canonical field value of d as a big integer.
func toBig(d aura.Digest) *big.Int {
	e := toElement(d)
	return e.BigInt(new(big.Int))
}

// Commit computes MiMC(DomainTag(c), secret, statement...) with every input
// reduced into the scalar field. The result is a canonical field element,
// so a Commit output round-trips through the circuit unchanged.
func Commit(c aura.Circuit, secret aura.Digest, statement ...aura.Digest) aura.Digest {
	h := mimc.NewMiMC()

	var tag fr.Element
	tag.SetBigInt(DomainTag(c))
	tb := tag.Bytes()
	h.Write(tb[:])

	for _, d := range append([]aura.Digest{secret}, statement...) {
		e := toElement(d)
		b := e.Bytes()
		h.Write(b[:])
	}

	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return aura.Digest(out.Bytes())
}

// SameField reports whether a and b denote the same scalar field element.
func SameField(a, b aura.Digest) bool {
	ea, eb := toElement(a), toElement(b)
	return ea.Equal(&eb)
}
