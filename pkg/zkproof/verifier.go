package zkproof

import (
	"bytes"
	"context"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"

	"github.com/mymonad/aura/pkg/aura"
)

// Verifier checks ledger proofs against the verifying keys it was given.
type Verifier struct {
	keys map[aura.Circuit]plonk.VerifyingKey
}

// NewVerifier creates a Verifier over the given compiled circuits. Only
// their verifying keys are used.
func NewVerifier(compiled ...*CompiledCircuit) *Verifier {
	v := &Verifier{keys: make(map[aura.Circuit]plonk.VerifyingKey, len(compiled))}
	for _, cc := range compiled {
		v.keys[cc.Circuit] = cc.VerifyingKey
	}
	return v
}

// Circuits returns the circuits v holds a key for.
func (v *Verifier) Circuits() []aura.Circuit {
	out := make([]aura.Circuit, 0, len(v.keys))
	for _, c := range aura.Circuits {
		if _, ok := v.keys[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// VerifyProof validates a serialized proof of circuit c over inputs.
// It returns nil if the proof is valid.
func (v *Verifier) VerifyProof(c aura.Circuit, proofBytes []byte, inputs []aura.Digest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("zkproof: verify %s panicked: %v", c, r)
		}
	}()

	vk, ok := v.keys[c]
	if !ok {
		return fmt.Errorf("%w: no verifying key for %s", ErrUnknownCircuit, c)
	}
	want, err := InputCount(c)
	if err != nil {
		return err
	}
	if len(inputs) != want {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrInputCount, c, want, len(inputs))
	}

	proof := plonk.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("deserialize proof: %w", err)
	}

	publicWitness, err := buildPublicWitness(c, inputs)
	if err != nil {
		return fmt.Errorf("build public witness: %w", err)
	}

	if err := plonk.Verify(proof, vk, publicWitness); err != nil {
		return fmt.Errorf("proof verification failed: %w", err)
	}
	return nil
}

// Verify implements the ledger's verifier contract: any failure, including
// a cancelled context, yields false.
func (v *Verifier) Verify(ctx context.Context, c aura.Circuit, proof []byte, inputs []aura.Digest) bool {
	if ctx.Err() != nil {
		return false
	}
	return v.VerifyProof(c, proof, inputs) == nil
}

func buildPublicWitness(c aura.Circuit, inputs []aura.Digest) (witness.Witness, error) {
	var assignment frontend.Circuit
	if c == aura.CircuitMutualMatch {
		assignment = attestationAssignment(inputs)
	} else {
		assignment = statementAssignment(c, inputs)
	}
	return frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
}
