package aura

// Circuit identifies the proof statement a verifier checks.
type Circuit string

const (
	// CircuitRegistration binds the biometric commitment to the registrant.
	// Inputs: [biometricCommitment, principal].
	CircuitRegistration Circuit = "registration"

	// CircuitPreferences binds a new preferences commitment to its owner.
	// Inputs: [preferencesCommitment, principal].
	CircuitPreferences Circuit = "preferences"

	// CircuitMatching binds a matching commitment to its owner and threshold.
	// Inputs: [commitment, principal, threshold].
	CircuitMatching Circuit = "matching"

	// CircuitMutualMatch attests a compatibility result between two principals.
	// Inputs: [a, b, score].
	CircuitMutualMatch Circuit = "mutual_match"

	// CircuitReveal binds a disclosure commitment to a match and revealer.
	// Inputs: [revealCommitment, matchID, principal].
	CircuitReveal Circuit = "reveal"
)

// Circuits lists every circuit the ledger asks a verifier about.
var Circuits = []Circuit{
	CircuitRegistration,
	CircuitPreferences,
	CircuitMatching,
	CircuitMutualMatch,
	CircuitReveal,
}

// RegistrationInputs returns the public inputs of a registration proof.
func RegistrationInputs(biometric Digest, p Principal) []Digest {
	return []Digest{biometric, p.Digest()}
}

// PreferencesInputs returns the public inputs of a preferences update proof.
func PreferencesInputs(preferences Digest, p Principal) []Digest {
	return []Digest{preferences, p.Digest()}
}

// MatchingInputs returns the public inputs of a matching intent proof.
func MatchingInputs(commitment Digest, p Principal, threshold uint64) []Digest {
	return []Digest{commitment, p.Digest(), DigestFromUint64(threshold)}
}

// MutualMatchInputs returns the public inputs of a mutual match attestation.
// Negative scores are clamped to zero here; the ledger rejects them before
// any proof is checked.
func MutualMatchInputs(a, b Principal, score int) []Digest {
	if score < 0 {
		score = 0
	}
	return []Digest{a.Digest(), b.Digest(), DigestFromUint64(uint64(score))}
}

// RevealInputs returns the public inputs of a reveal unlock proof.
func RevealInputs(revealCommitment, matchID Digest, p Principal) []Digest {
	return []Digest{revealCommitment, matchID, p.Digest()}
}
