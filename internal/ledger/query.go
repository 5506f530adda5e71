package ledger

import (
	"fmt"

	"github.com/mymonad/aura/pkg/aura"
)

// Profile returns a copy of principal's profile.
func (l *Ledger) Profile(principal aura.Principal) (aura.Profile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	profile, err := l.registered(principal)
	if err != nil {
		return aura.Profile{}, err
	}
	return *profile, nil
}

// Intent returns a copy of the intent stored under commitment. An intent
// past its expiry reads back inactive even before the sweeper runs.
func (l *Ledger) Intent(commitment aura.Digest) (aura.MatchingIntent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	intent, ok := l.intents[commitment]
	if !ok {
		return aura.MatchingIntent{}, fmt.Errorf("%w: intent %s", aura.ErrNotFound, commitment.Short())
	}
	out := *intent
	if out.Expired(l.now()) {
		out.Active = false
	}
	return out, nil
}

// Match returns a copy of the mutual match with the given id.
func (l *Ledger) Match(id aura.Digest) (aura.MutualMatch, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	match, ok := l.matches[id]
	if !ok {
		return aura.MutualMatch{}, fmt.Errorf("%w: match %s", aura.ErrNotFound, id.Short())
	}
	return *match, nil
}

// Stats returns the aggregate counters.
func (l *Ledger) Stats() aura.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return aura.Stats{
		TotalUsers:   l.totalUsers,
		TotalMatches: l.totalMatches,
		TotalReveals: l.totalReveals,
		TotalIntents: uint64(len(l.intents)),
		Paused:       l.paused,
		Owner:        l.owner,
	}
}

// HasRevealed reports whether revealer has revealed to counterpart in any match.
func (l *Ledger) HasRevealed(revealer, counterpart aura.Principal) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.reveals[revealKey{revealer: revealer, counterpart: counterpart}]
	return ok
}

// RevealRecords returns the reveals made by revealer, oldest first.
// Reveals made to revealer are not included.
func (l *Ledger) RevealRecords(revealer aura.Principal) []aura.RevealRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []aura.RevealRecord
	for _, r := range l.revealLog {
		if r.Revealer == revealer {
			out = append(out, r)
		}
	}
	return out
}

// EligibleCounterpart reports whether principal may be matched against the
// intent stored under commitment: the intent is live, principal is not its
// owner, and principal's profile is active with enough Aura.
func (l *Ledger) EligibleCounterpart(commitment aura.Digest, principal aura.Principal) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	intent, ok := l.intents[commitment]
	if !ok {
		return false, fmt.Errorf("%w: intent %s", aura.ErrNotFound, commitment.Short())
	}
	profile, err := l.registered(principal)
	if err != nil {
		return false, err
	}
	if !intent.Active || intent.Expired(l.now()) || intent.Owner == principal {
		return false, nil
	}
	return profile.Active && profile.AuraPoints >= intent.AuraThreshold, nil
}

// Owner returns the current authority principal.
func (l *Ledger) Owner() aura.Principal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.owner
}

// Paused reports whether the system-wide halt is in effect.
func (l *Ledger) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}
