package zkproof

import (
	"fmt"
	"slices"

	"github.com/mymonad/aura/pkg/aura"
)

// SupportedProofSystem identifies the proofs this implementation produces
// and checks.
const SupportedProofSystem = "plonk-bn254"

// Capability describes what a node's verifier accepts. Clients read it
// before proving locally so they do not build proofs the node cannot check.
type Capability struct {
	// Backend is the configured verification backend.
	Backend Backend `json:"backend"`

	// ProofSystem is SupportedProofSystem for the plonk backend and empty
	// for the static ones.
	ProofSystem string `json:"proof_system,omitempty"`

	// Circuits lists the circuits the node holds verifying keys for.
	Circuits []aura.Circuit `json:"circuits,omitempty"`
}

// RequiresProofs reports whether the node checks proofs for real.
func (c Capability) RequiresProofs() bool {
	return c.Backend == BackendPlonk
}

// CheckCompatibility verifies that a node's capability lets a local plonk
// prover submit proofs of circuit.
func CheckCompatibility(node Capability, circuit aura.Circuit) error {
	switch node.Backend {
	case BackendAccept:
		return nil
	case BackendReject:
		return fmt.Errorf("%w: node rejects every proof", ErrIncompatibleSystem)
	case BackendPlonk:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, node.Backend)
	}

	if node.ProofSystem != SupportedProofSystem {
		return fmt.Errorf("%w: node uses %s, we use %s",
			ErrIncompatibleSystem, node.ProofSystem, SupportedProofSystem)
	}
	if !slices.Contains(node.Circuits, circuit) {
		return fmt.Errorf("%w: node has no key for %s", ErrCircuitNotReady, circuit)
	}
	return nil
}
