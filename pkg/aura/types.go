package aura

import "time"

// Profile is the committed identity of a registered principal.
type Profile struct {
	Principal             Principal `json:"principal"`
	BiometricCommitment   Digest    `json:"biometric_commitment"`
	PreferencesCommitment Digest    `json:"preferences_commitment"`
	AuraPoints            uint64    `json:"aura_points"`
	RegisteredAt          time.Time `json:"registered_at"`
	LastActiveAt          time.Time `json:"last_active_at"`
	Active                bool      `json:"active"`
	Verified              bool      `json:"verified"`
	MatchCount            uint64    `json:"match_count"`
	RevealCount           uint64    `json:"reveal_count"`
}

// Exists reports whether the profile has been registered.
func (p Profile) Exists() bool {
	return !p.BiometricCommitment.IsZero()
}

// MatchingIntent is a principal's declared willingness to be matched.
type MatchingIntent struct {
	Owner         Principal `json:"owner"`
	Commitment    Digest    `json:"commitment"`
	AuraThreshold uint64    `json:"aura_threshold"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	Version       uint64    `json:"version"`
	Active        bool      `json:"active"`
}

// Expired reports whether the intent has an expiry at or before now.
func (i MatchingIntent) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// MutualMatch is an authority-declared pairing pending two-sided reveal.
type MutualMatch struct {
	ID                 Digest    `json:"id"`
	ParticipantA       Principal `json:"participant_a"`
	ParticipantB       Principal `json:"participant_b"`
	CompatibilityScore int       `json:"compatibility_score"`
	MatchedAt          time.Time `json:"matched_at"`
	RevealedA          bool      `json:"revealed_a"`
	RevealedB          bool      `json:"revealed_b"`
	RevealCommitmentA  Digest    `json:"reveal_commitment_a"`
	RevealCommitmentB  Digest    `json:"reveal_commitment_b"`
	MutualRevealedAt   time.Time `json:"mutual_revealed_at,omitempty"`
}

// HasParticipant reports whether p is one side of the match.
func (m MutualMatch) HasParticipant(p Principal) bool {
	return m.ParticipantA == p || m.ParticipantB == p
}

// Counterpart returns the other side of the match for p.
func (m MutualMatch) Counterpart(p Principal) Principal {
	if m.ParticipantA == p {
		return m.ParticipantB
	}
	return m.ParticipantA
}

// MutuallyRevealed reports whether both sides have revealed.
func (m MutualMatch) MutuallyRevealed() bool {
	return !m.MutualRevealedAt.IsZero()
}

// RevealRecord notes that Revealer disclosed to Counterpart within a match.
type RevealRecord struct {
	Revealer    Principal `json:"revealer"`
	Counterpart Principal `json:"counterpart"`
	MatchID     Digest    `json:"match_id"`
	RevealedAt  time.Time `json:"revealed_at"`
}

// Stats are the aggregate ledger counters.
type Stats struct {
	TotalUsers   uint64    `json:"total_users"`
	TotalMatches uint64    `json:"total_matches"`
	TotalReveals uint64    `json:"total_reveals"`
	TotalIntents uint64    `json:"total_intents"`
	Paused       bool      `json:"paused"`
	Owner        Principal `json:"owner"`
}
