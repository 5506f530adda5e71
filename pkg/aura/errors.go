package aura

import (
	"errors"
	"strings"
)

// Error is a categorized ledger error. Every failed operation returns an
// error that wraps exactly one of the constants below, so callers can match
// with errors.Is regardless of the transport in between.
type Error string

const (
	// ErrAlreadyRegistered indicates the principal already has a profile.
	ErrAlreadyRegistered Error = "already_registered"

	// ErrNotRegistered indicates the principal has no profile.
	ErrNotRegistered Error = "not_registered"

	// ErrInvalidCommitment indicates a required commitment was zero.
	ErrInvalidCommitment Error = "invalid_commitment"

	// ErrInvalidScore indicates a compatibility score outside [0,100].
	ErrInvalidScore Error = "invalid_score"

	// ErrInvalidOwner indicates the null principal was given where an owner is required.
	ErrInvalidOwner Error = "invalid_owner"

	// ErrInvalidProof indicates the verifier rejected the proof.
	// Resubmitting with a corrected proof is always allowed.
	ErrInvalidProof Error = "invalid_proof"

	// ErrNotParticipant indicates the caller is not a side of the match.
	ErrNotParticipant Error = "not_participant"

	// ErrNotFound indicates an unknown match or intent.
	ErrNotFound Error = "not_found"

	// ErrInactiveParticipant indicates a profile that must be active is not.
	ErrInactiveParticipant Error = "inactive_participant"

	// ErrUnauthorized indicates the caller lacks the required capability.
	ErrUnauthorized Error = "unauthorized"

	// ErrPaused indicates the system-wide halt is in effect.
	ErrPaused Error = "paused"

	// ErrSelfMatch indicates both sides of a match are the same principal.
	ErrSelfMatch Error = "self_match"
)

var allErrors = []Error{
	ErrAlreadyRegistered,
	ErrNotRegistered,
	ErrInvalidCommitment,
	ErrInvalidScore,
	ErrInvalidOwner,
	ErrInvalidProof,
	ErrNotParticipant,
	ErrNotFound,
	ErrInactiveParticipant,
	ErrUnauthorized,
	ErrPaused,
	ErrSelfMatch,
}

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// KindOf returns the ledger error kind wrapped by err, if any.
func KindOf(err error) (Error, bool) {
	var kind Error
	if errors.As(err, &kind) {
		return kind, true
	}
	return "", false
}

// ParseError recovers a ledger error from its message form, as produced by
// wrapping with fmt.Errorf("%w: ...", kind). The kind must be the prefix.
func ParseError(msg string) (Error, bool) {
	for _, kind := range allErrors {
		s := string(kind)
		if msg == s || strings.HasPrefix(msg, s+":") {
			return kind, true
		}
	}
	return "", false
}
