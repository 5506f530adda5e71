// Package zkproof implements the PLONK circuits that back the aura ledger's
// proof-gated transitions, together with their setup, key storage, proving
// and verification.
//
// Two circuit shapes cover every ledger statement:
//
//   - StatementCircuit proves knowledge of a secret s such that
//     MiMC(tag, s, statement...) == commitment. Registration, preferences,
//     matching and reveal proofs all take this shape, with the commitment
//     as the first public input and the statement after it. tag is a
//     constant naming the circuit, so each circuit compiles to its own
//     constraint system and keys.
//   - MatchAttestationCircuit attests that a compatibility result names two
//     distinct principals and a score within [0, 100].
package zkproof

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/mymonad/aura/pkg/aura"
)

// MaxScore is the highest compatibility score an attestation accepts.
const MaxScore = 100

// StatementCircuit binds a public commitment to a secret and a public
// statement. Build it with NewStatementCircuit so Statement has the
// circuit's arity and Domain its tag.
type StatementCircuit struct {
	// Domain is hashed as a constant ahead of the secret.
	Domain *big.Int `gnark:"-"`

	// Private witness
	Secret frontend.Variable `gnark:",secret"`

	// Public inputs
	Commitment frontend.Variable   `gnark:",public"`
	Statement  []frontend.Variable `gnark:",public"`
}

// NewStatementCircuit returns the statement circuit of c.
func NewStatementCircuit(c aura.Circuit) *StatementCircuit {
	return &StatementCircuit{
		Domain:    DomainTag(c),
		Statement: make([]frontend.Variable, StatementArity(c)),
	}
}

// DomainTag is the field element that separates the commitments of c from
// those of every other circuit.
func DomainTag(c aura.Circuit) *big.Int {
	return new(big.Int).SetBytes([]byte(c))
}

// Define implements frontend.Circuit.
func (c *StatementCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	if c.Domain == nil {
		return ErrMissingDomain
	}
	h.Write(c.Domain)
	h.Write(c.Secret)
	h.Write(c.Statement...)
	api.AssertIsEqual(h.Sum(), c.Commitment)

	return nil
}

// MatchAttestationCircuit constrains a mutual match result.
type MatchAttestationCircuit struct {
	A     frontend.Variable `gnark:",public"`
	B     frontend.Variable `gnark:",public"`
	Score frontend.Variable `gnark:",public"`
}

// Define implements frontend.Circuit.
func (c *MatchAttestationCircuit) Define(api frontend.API) error {
	api.AssertIsDifferent(c.A, c.B)
	api.AssertIsLessOrEqual(c.Score, MaxScore)
	return nil
}
