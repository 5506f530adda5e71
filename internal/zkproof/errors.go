package zkproof

// ZKError represents a categorized failure of the verification backend.
// Verification failures never reach ledger callers as ZKError: the ledger
// only sees a boolean and reports invalid_proof. ZKError values surface in
// logs, in setup and in the CLI's local proving.
type ZKError string

const (
	// ErrProofGenerationFailed indicates that local proof generation failed.
	ErrProofGenerationFailed ZKError = "proof_generation_failed"

	// ErrProofVerificationFailed indicates that a proof did not verify.
	ErrProofVerificationFailed ZKError = "proof_verification_failed"

	// ErrIncompatibleSystem indicates that the node and the prover disagree
	// on the proof system or on the set of circuits.
	ErrIncompatibleSystem ZKError = "incompatible_proof_system"

	// ErrProofTimeout indicates that verification exceeded the configured timeout.
	ErrProofTimeout ZKError = "proof_timeout"

	// ErrCircuitNotReady indicates that no keys are loaded for a circuit.
	ErrCircuitNotReady ZKError = "circuit_not_ready"

	// ErrServiceClosed indicates that the service no longer accepts work.
	ErrServiceClosed ZKError = "service_closed"

	// ErrUnknownBackend indicates an unsupported backend name.
	ErrUnknownBackend ZKError = "unknown_backend"
)

// Error implements the error interface for ZKError.
func (e ZKError) Error() string {
	return string(e)
}
