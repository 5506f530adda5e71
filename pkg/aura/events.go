package aura

import "time"

// EventKind names a state-changing ledger transition.
type EventKind string

const (
	EventRegistered           EventKind = "registered"
	EventPreferencesUpdated   EventKind = "preferences_updated"
	EventActiveChanged        EventKind = "active_changed"
	EventVerified             EventKind = "verified"
	EventIntentSubmitted      EventKind = "intent_submitted"
	EventIntentExpired        EventKind = "intent_expired"
	EventMatchFound           EventKind = "match_found"
	EventRevealInitiated      EventKind = "reveal_initiated"
	EventRevealed             EventKind = "revealed"
	EventAuraAwarded          EventKind = "aura_awarded"
	EventAuraDeducted         EventKind = "aura_deducted"
	EventPaused               EventKind = "paused"
	EventUnpaused             EventKind = "unpaused"
	EventOwnershipTransferred EventKind = "ownership_transferred"
)

// Award reasons used by the ledger's own flows. Admin awards and
// deductions carry free-text reasons.
const (
	ReasonRegistration = "registration"
	ReasonMatch        = "match"
	ReasonReveal       = "reveal"
	ReasonVerification = "verification"
)

// Event is an audit entry for one state change. Seq increases by one for
// every event the ledger emits, so consumers can detect gaps.
type Event struct {
	ID          string    `json:"id"`
	Seq         uint64    `json:"seq"`
	Kind        EventKind `json:"kind"`
	Principal   Principal `json:"principal"`
	Counterpart Principal `json:"counterpart,omitempty"`
	MatchID     Digest    `json:"match_id,omitempty"`
	Commitment  Digest    `json:"commitment,omitempty"`
	Points      uint64    `json:"points,omitempty"`
	Requested   uint64    `json:"requested,omitempty"`
	Score       int       `json:"score,omitempty"`
	Active      bool      `json:"active"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}
