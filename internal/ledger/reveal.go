package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/mymonad/aura/pkg/aura"
)

// InitiateReveal records the caller's consent to disclose its identity to
// the counterpart of matchID. Repeating the call is a no-op. The call that
// completes the second side stamps MutualRevealedAt and credits RevealAura
// to both participants; that happens exactly once per match no matter the
// order or concurrency of the two calls.
func (l *Ledger) InitiateReveal(
	ctx context.Context,
	caller aura.Principal,
	matchID aura.Digest,
	revealCommitment aura.Digest,
	proof []byte,
) (aura.MutualMatch, error) {
	check := func() error {
		if err := l.checkNotPaused(); err != nil {
			return err
		}
		match, ok := l.matches[matchID]
		if !ok {
			return fmt.Errorf("%w: match %s", aura.ErrNotFound, matchID.Short())
		}
		if !match.HasParticipant(caller) {
			return fmt.Errorf("%w: %s in match %s", aura.ErrNotParticipant, caller, matchID.Short())
		}
		if revealCommitment.IsZero() {
			return fmt.Errorf("%w: reveal commitment is zero", aura.ErrInvalidCommitment)
		}
		return nil
	}

	var (
		result    aura.MutualMatch
		completed bool
	)
	err := l.transition(ctx, check, aura.CircuitReveal, proof,
		aura.RevealInputs(revealCommitment, matchID, caller),
		func(now time.Time) {
			match := l.matches[matchID]
			completed = l.applyReveal(match, caller, revealCommitment, now)
			result = *match
		})
	if err != nil {
		return aura.MutualMatch{}, err
	}

	if completed {
		l.logger.Info("mutual reveal completed", "match_id", matchID.Short())
	}
	return result, nil
}

// applyReveal sets the caller's side and performs the mutual transition
// when it is due. Returns true if this call completed the mutual reveal.
// Must be called with the write lock held.
func (l *Ledger) applyReveal(match *aura.MutualMatch, caller aura.Principal, commitment aura.Digest, now time.Time) bool {
	revealed, bound := &match.RevealedA, &match.RevealCommitmentA
	if caller != match.ParticipantA {
		revealed, bound = &match.RevealedB, &match.RevealCommitmentB
	}
	if *revealed {
		return false
	}
	*revealed = true
	*bound = commitment

	counterpart := match.Counterpart(caller)
	l.reveals[revealKey{revealer: caller, counterpart: counterpart}] = struct{}{}
	l.revealLog = append(l.revealLog, aura.RevealRecord{
		Revealer:    caller,
		Counterpart: counterpart,
		MatchID:     match.ID,
		RevealedAt:  now,
	})
	l.emit(aura.Event{
		Kind:        aura.EventRevealInitiated,
		Principal:   caller,
		Counterpart: counterpart,
		MatchID:     match.ID,
		Commitment:  commitment,
	}, now)

	if !match.RevealedA || !match.RevealedB || !match.MutualRevealedAt.IsZero() {
		return false
	}

	match.MutualRevealedAt = now
	l.totalReveals++
	for _, p := range []aura.Principal{match.ParticipantA, match.ParticipantB} {
		l.emit(aura.Event{
			Kind:        aura.EventRevealed,
			Principal:   p,
			Counterpart: match.Counterpart(p),
			MatchID:     match.ID,
		}, now)
		if profile, ok := l.profiles[p]; ok {
			profile.RevealCount++
			l.credit(profile, l.cfg.RevealAura, aura.ReasonReveal, now)
		}
	}
	return true
}
