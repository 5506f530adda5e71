package zkproof

import (
	"errors"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"

	"github.com/mymonad/aura/pkg/aura"
)

// ErrUnknownCircuit is returned for a circuit name with no definition.
var ErrUnknownCircuit = errors.New("zkproof: unknown circuit")

var (
	// compiled caches setup results per circuit.
	compiled = make(map[aura.Circuit]*CompiledCircuit)
	// compileMu protects compiled.
	compileMu sync.Mutex
)

// CompiledCircuit contains the constraint system and keys of one circuit.
type CompiledCircuit struct {
	// Circuit names the ledger statement this circuit proves.
	Circuit aura.Circuit

	// ConstraintSystem is the compiled circuit in sparse constraint form.
	ConstraintSystem constraint.ConstraintSystem

	// ProvingKey is used to generate proofs. It is nil when only the
	// verifying key was loaded.
	ProvingKey plonk.ProvingKey

	// VerifyingKey is used to verify proofs.
	VerifyingKey plonk.VerifyingKey
}

// StatementArity returns the number of statement inputs a statement circuit
// carries after its commitment, or 0 for circuits of another shape.
func StatementArity(c aura.Circuit) int {
	switch c {
	case aura.CircuitRegistration, aura.CircuitPreferences:
		return 1
	case aura.CircuitMatching, aura.CircuitReveal:
		return 2
	default:
		return 0
	}
}

// InputCount returns the number of public inputs c expects.
func InputCount(c aura.Circuit) (int, error) {
	if c == aura.CircuitMutualMatch {
		return 3, nil
	}
	if n := StatementArity(c); n > 0 {
		return n + 1, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCircuit, c)
}

func definition(c aura.Circuit) (frontend.Circuit, error) {
	if c == aura.CircuitMutualMatch {
		return &MatchAttestationCircuit{}, nil
	}
	if StatementArity(c) > 0 {
		return NewStatementCircuit(c), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCircuit, c)
}

// CompileCircuit compiles c and generates its proving and verifying keys.
//
// It uses PlonK over BN254 with an unsafe SRS, which is only suitable for
// development and testing. Production deployments load keys produced from
// a ceremony SRS with LoadCompiled instead.
func CompileCircuit(c aura.Circuit) (*CompiledCircuit, error) {
	circuit, err := definition(c)
	if err != nil {
		return nil, err
	}

	cs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("compile %s circuit: %w", c, err)
	}

	srs, srsLagrange, err := unsafekzg.NewSRS(cs)
	if err != nil {
		return nil, fmt.Errorf("generate SRS for %s: %w", c, err)
	}

	pk, vk, err := plonk.Setup(cs, srs, srsLagrange)
	if err != nil {
		return nil, fmt.Errorf("setup %s keys: %w", c, err)
	}

	return &CompiledCircuit{
		Circuit:          c,
		ConstraintSystem: cs,
		ProvingKey:       pk,
		VerifyingKey:     vk,
	}, nil
}

// GetCompiledCircuit returns the cached setup of c, compiling it on first call.
func GetCompiledCircuit(c aura.Circuit) (*CompiledCircuit, error) {
	compileMu.Lock()
	defer compileMu.Unlock()

	if cc, ok := compiled[c]; ok {
		return cc, nil
	}

	cc, err := CompileCircuit(c)
	if err != nil {
		return nil, err
	}

	compiled[c] = cc
	return cc, nil
}

// CompileAll returns the setup of every ledger circuit.
func CompileAll() ([]*CompiledCircuit, error) {
	out := make([]*CompiledCircuit, 0, len(aura.Circuits))
	for _, c := range aura.Circuits {
		cc, err := GetCompiledCircuit(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, nil
}

// ResetCompiledCircuits clears the setup cache.
func ResetCompiledCircuits() {
	compileMu.Lock()
	defer compileMu.Unlock()
	compiled = make(map[aura.Circuit]*CompiledCircuit)
}
