package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/mymonad/aura/pkg/aura"
)

// matchIDDomain separates match identifiers from other blake2b uses.
const matchIDDomain = "aura/mutual-match/v1"

// SubmitIntent upserts the caller's matching intent keyed by commitment.
// Resubmitting the same commitment supersedes the previous intent and
// increments its version.
func (l *Ledger) SubmitIntent(
	ctx context.Context,
	caller aura.Principal,
	commitment aura.Digest,
	auraThreshold uint64,
	proof []byte,
) (aura.MatchingIntent, error) {
	check := func() error {
		if err := l.checkNotPaused(); err != nil {
			return err
		}
		if commitment.IsZero() {
			return fmt.Errorf("%w: matching commitment is zero", aura.ErrInvalidCommitment)
		}
		profile, err := l.registered(caller)
		if err != nil {
			return err
		}
		if !profile.Active {
			return fmt.Errorf("%w: %s", aura.ErrInactiveParticipant, caller)
		}
		if existing, ok := l.intents[commitment]; ok && existing.Owner != caller {
			return fmt.Errorf("%w: commitment %s is held by another principal",
				aura.ErrUnauthorized, commitment.Short())
		}
		return nil
	}

	var stored aura.MatchingIntent
	err := l.transition(ctx, check, aura.CircuitMatching, proof,
		aura.MatchingInputs(commitment, caller, auraThreshold),
		func(now time.Time) {
			intent, ok := l.intents[commitment]
			if !ok {
				intent = &aura.MatchingIntent{
					Owner:      caller,
					Commitment: commitment,
					CreatedAt:  now,
				}
				l.intents[commitment] = intent
			}
			intent.AuraThreshold = auraThreshold
			intent.UpdatedAt = now
			intent.Version++
			intent.Active = true
			intent.ExpiresAt = time.Time{}
			if l.cfg.IntentTTL > 0 {
				intent.ExpiresAt = now.Add(l.cfg.IntentTTL)
			}

			l.profiles[caller].LastActiveAt = now

			l.emit(aura.Event{
				Kind:       aura.EventIntentSubmitted,
				Principal:  caller,
				Commitment: commitment,
				Points:     auraThreshold,
			}, now)

			stored = *intent
		})
	if err != nil {
		return aura.MatchingIntent{}, err
	}

	return stored, nil
}

// RecordMutualMatch declares a, b compatible after the authority has
// checked their compatibility off-ledger. Both sides gain MatchAura.
func (l *Ledger) RecordMutualMatch(
	ctx context.Context,
	caller, a, b aura.Principal,
	score int,
	proof []byte,
) (aura.MutualMatch, error) {
	check := func() error {
		if err := l.checkNotPaused(); err != nil {
			return err
		}
		if err := l.checkOwner(caller); err != nil {
			return err
		}
		if a == b {
			return fmt.Errorf("%w: %s", aura.ErrSelfMatch, a)
		}
		for _, p := range []aura.Principal{a, b} {
			profile, err := l.registered(p)
			if err != nil {
				return err
			}
			if !profile.Active {
				return fmt.Errorf("%w: %s", aura.ErrInactiveParticipant, p)
			}
		}
		if score < 0 || score > 100 {
			return fmt.Errorf("%w: %d is outside [0,100]", aura.ErrInvalidScore, score)
		}
		return nil
	}

	var created aura.MutualMatch
	err := l.transition(ctx, check, aura.CircuitMutualMatch, proof,
		aura.MutualMatchInputs(a, b, score),
		func(now time.Time) {
			nonce := l.totalMatches + 1
			id := deriveMatchID(a, b, now, nonce)
			for {
				if _, taken := l.matches[id]; !taken {
					break
				}
				nonce++
				id = deriveMatchID(a, b, now, nonce)
			}

			match := &aura.MutualMatch{
				ID:                 id,
				ParticipantA:       a,
				ParticipantB:       b,
				CompatibilityScore: score,
				MatchedAt:          now,
			}
			l.matches[id] = match
			l.totalMatches++

			l.emit(aura.Event{
				Kind:        aura.EventMatchFound,
				Principal:   a,
				Counterpart: b,
				MatchID:     id,
				Score:       score,
			}, now)
			for _, p := range []aura.Principal{a, b} {
				profile := l.profiles[p]
				profile.MatchCount++
				l.credit(profile, l.cfg.MatchAura, aura.ReasonMatch, now)
			}

			created = *match
		})
	if err != nil {
		return aura.MutualMatch{}, err
	}

	l.logger.Info("mutual match recorded",
		"match_id", created.ID.Short(),
		"score", score,
	)
	return created, nil
}

// ExpireIntents deactivates every intent whose expiry is at or before now
// and returns how many were deactivated. Nothing is swept while paused.
func (l *Ledger) ExpireIntents(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return 0
	}

	expired := 0
	for _, intent := range l.intents {
		if !intent.Active || !intent.Expired(now) {
			continue
		}
		intent.Active = false
		expired++
		l.emit(aura.Event{
			Kind:       aura.EventIntentExpired,
			Principal:  intent.Owner,
			Commitment: intent.Commitment,
		}, now)
	}
	return expired
}

// deriveMatchID hashes the pair, the match time and a nonce, so the same
// two principals get a fresh identifier every time they are matched.
func deriveMatchID(a, b aura.Principal, at time.Time, nonce uint64) aura.Digest {
	var buf []byte
	buf = append(buf, matchIDDomain...)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(at.UnixNano()))
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return aura.Digest(blake2b.Sum256(buf))
}
