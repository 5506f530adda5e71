package ipc

import (
	"encoding/json"

	"github.com/mymonad/aura/internal/zkproof"
	"github.com/mymonad/aura/pkg/aura"
)

// Envelope wraps the payload of every mutating call. Signature covers
// SignedBytes(method, Payload, Timestamp) under the caller's key.
type Envelope struct {
	Caller    string          `json:"caller"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature []byte          `json:"signature"`
}

// Mutating call payloads.

type RegisterRequest struct {
	Biometric   aura.Digest `json:"biometric"`
	Preferences aura.Digest `json:"preferences"`
	Proof       []byte      `json:"proof"`
}

type UpdatePreferencesRequest struct {
	Preferences aura.Digest `json:"preferences"`
	Proof       []byte      `json:"proof"`
}

type SetActiveRequest struct {
	Principal aura.Principal `json:"principal"`
	Active    bool           `json:"active"`
}

type PrincipalRequest struct {
	Principal aura.Principal `json:"principal"`
}

type SubmitIntentRequest struct {
	Commitment    aura.Digest `json:"commitment"`
	AuraThreshold uint64      `json:"aura_threshold"`
	Proof         []byte      `json:"proof"`
}

type RecordMatchRequest struct {
	A     aura.Principal `json:"a"`
	B     aura.Principal `json:"b"`
	Score int            `json:"score"`
	Proof []byte         `json:"proof"`
}

type InitiateRevealRequest struct {
	MatchID          aura.Digest `json:"match_id"`
	RevealCommitment aura.Digest `json:"reveal_commitment"`
	Proof            []byte      `json:"proof"`
}

type AdjustAuraRequest struct {
	Principal aura.Principal `json:"principal"`
	Points    uint64         `json:"points"`
	Reason    string         `json:"reason"`
}

type SetPausedRequest struct {
	Paused bool `json:"paused"`
}

type TransferOwnershipRequest struct {
	NewOwner aura.Principal `json:"new_owner"`
}

// Query requests. Queries are not signed.

type DigestRequest struct {
	Digest aura.Digest `json:"digest"`
}

type PairRequest struct {
	Revealer    aura.Principal `json:"revealer"`
	Counterpart aura.Principal `json:"counterpart"`
}

type EligibleRequest struct {
	Commitment aura.Digest    `json:"commitment"`
	Principal  aura.Principal `json:"principal"`
}

type EventsRequest struct {
	Principal aura.Principal `json:"principal"`
	Limit     int            `json:"limit"`
}

type Empty struct{}

// Responses.

type BoolResponse struct {
	Value bool `json:"value"`
}

type DeductResponse struct {
	Removed uint64 `json:"removed"`
}

type RevealRecordsResponse struct {
	Records []aura.RevealRecord `json:"records"`
}

type EventsResponse struct {
	Events []aura.Event `json:"events"`
}

type CapabilityResponse struct {
	Capability zkproof.Capability `json:"capability"`
}
