package zkproof

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/frontend"

	"github.com/mymonad/aura/pkg/aura"
)

// Prover generates proofs for the ledger circuits it holds a proving key for.
type Prover struct {
	circuits map[aura.Circuit]*CompiledCircuit
}

// NewProver creates a Prover over the given compiled circuits.
func NewProver(compiled ...*CompiledCircuit) *Prover {
	p := &Prover{circuits: make(map[aura.Circuit]*CompiledCircuit, len(compiled))}
	for _, cc := range compiled {
		p.circuits[cc.Circuit] = cc
	}
	return p
}

// Add registers the setup of another circuit. Not safe for use
// concurrently with proving.
func (p *Prover) Add(cc *CompiledCircuit) {
	p.circuits[cc.Circuit] = cc
}

// Has reports whether p holds a setup for c.
func (p *Prover) Has(c aura.Circuit) bool {
	_, ok := p.circuits[c]
	return ok
}

// ProveStatement proves that secret opens inputs[0] over the statement
// inputs[1:]. inputs must be laid out as the aura input builders produce
// them, e.g. aura.RegistrationInputs.
func (p *Prover) ProveStatement(c aura.Circuit, secret aura.Digest, inputs []aura.Digest) ([]byte, error) {
	arity := StatementArity(c)
	if arity == 0 {
		return nil, fmt.Errorf("%w: %q is not a statement circuit", ErrUnknownCircuit, c)
	}
	if len(inputs) != arity+1 {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrInputCount, c, arity+1, len(inputs))
	}
	if !SameField(Commit(c, secret, inputs[1:]...), inputs[0]) {
		return nil, ErrCommitmentMismatch
	}

	assignment := statementAssignment(c, inputs)
	assignment.Secret = toBig(secret)
	return p.prove(c, assignment)
}

// ProveAttestation proves a mutual match result between a and b.
func (p *Prover) ProveAttestation(a, b aura.Principal, score int) ([]byte, error) {
	if score < 0 || score > MaxScore {
		return nil, fmt.Errorf("zkproof: score %d outside [0,%d]", score, MaxScore)
	}
	return p.prove(aura.CircuitMutualMatch, attestationAssignment(aura.MutualMatchInputs(a, b, score)))
}

func (p *Prover) prove(c aura.Circuit, assignment frontend.Circuit) ([]byte, error) {
	cc, ok := p.circuits[c]
	if !ok {
		return nil, fmt.Errorf("%w: no setup for %s", ErrUnknownCircuit, c)
	}
	if cc.ProvingKey == nil || cc.ConstraintSystem == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingProvingKey, c)
	}

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}

	proof, err := plonk.Prove(cc.ConstraintSystem, cc.ProvingKey, witness)
	if err != nil {
		return nil, fmt.Errorf("generate %s proof: %w", c, err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	return buf.Bytes(), nil
}

// statementAssignment fills the public part of the statement circuit of c.
func statementAssignment(c aura.Circuit, inputs []aura.Digest) *StatementCircuit {
	assignment := NewStatementCircuit(c)
	assignment.Secret = 0
	assignment.Commitment = toBig(inputs[0])
	for i := range assignment.Statement {
		assignment.Statement[i] = toBig(inputs[i+1])
	}
	return assignment
}

func attestationAssignment(inputs []aura.Digest) *MatchAttestationCircuit {
	return &MatchAttestationCircuit{
		A:     toBig(inputs[0]),
		B:     toBig(inputs[1]),
		Score: toBig(inputs[2]),
	}
}
