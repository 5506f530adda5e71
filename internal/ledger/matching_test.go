package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymonad/aura/pkg/aura"
)

func TestSubmitIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice)

	intent, err := f.ledger.SubmitIntent(ctx, alice, digest(40), 120, proof)
	require.NoError(t, err)
	assert.Equal(t, alice, intent.Owner)
	assert.Equal(t, uint64(120), intent.AuraThreshold)
	assert.Equal(t, uint64(1), intent.Version)
	assert.True(t, intent.Active)
	assert.True(t, intent.ExpiresAt.IsZero())

	created := intent.CreatedAt
	f.clock.Advance(time.Minute)
	intent, err = f.ledger.SubmitIntent(ctx, alice, digest(40), 90, proof)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), intent.Version)
	assert.Equal(t, uint64(90), intent.AuraThreshold)
	assert.Equal(t, created, intent.CreatedAt)
	assert.Equal(t, f.clock.Now(), intent.UpdatedAt)
	assert.Equal(t, uint64(1), f.ledger.Stats().TotalIntents)
}

func TestSubmitIntent_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice, bob)

	_, err := f.ledger.SubmitIntent(ctx, alice, aura.Digest{}, 0, proof)
	assertKind(t, err, aura.ErrInvalidCommitment)

	_, err = f.ledger.SubmitIntent(ctx, carol, digest(40), 0, proof)
	assertKind(t, err, aura.ErrNotRegistered)

	_, err = f.ledger.SubmitIntent(ctx, alice, digest(40), 0, proof)
	require.NoError(t, err)
	_, err = f.ledger.SubmitIntent(ctx, bob, digest(40), 0, proof)
	assertKind(t, err, aura.ErrUnauthorized)

	require.NoError(t, f.ledger.SetActive(bob, bob, false))
	_, err = f.ledger.SubmitIntent(ctx, bob, digest(41), 0, proof)
	assertKind(t, err, aura.ErrInactiveParticipant)
}

func TestSubmitIntent_TTLAndExpiry(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.IntentTTL = time.Hour })
	ctx := context.Background()
	f.register(t, alice, bob)

	intent, err := f.ledger.SubmitIntent(ctx, alice, digest(40), 0, proof)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(time.Hour), intent.ExpiresAt)

	eligible, err := f.ledger.EligibleCounterpart(digest(40), bob)
	require.NoError(t, err)
	assert.True(t, eligible)

	f.clock.Advance(time.Hour)

	got, err := f.ledger.Intent(digest(40))
	require.NoError(t, err)
	assert.False(t, got.Active, "expired intent reads back inactive")

	eligible, err = f.ledger.EligibleCounterpart(digest(40), bob)
	require.NoError(t, err)
	assert.False(t, eligible)

	assert.Equal(t, 1, f.ledger.ExpireIntents(f.clock.Now()))
	assert.Equal(t, 0, f.ledger.ExpireIntents(f.clock.Now()))
	assert.Equal(t, 1, f.sink.count(aura.EventIntentExpired))

	intent, err = f.ledger.SubmitIntent(ctx, alice, digest(40), 0, proof)
	require.NoError(t, err)
	assert.True(t, intent.Active)
	assert.Equal(t, uint64(2), intent.Version)
}

func TestExpireIntents_SkippedWhilePaused(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.IntentTTL = time.Minute })
	f.register(t, alice)
	_, err := f.ledger.SubmitIntent(context.Background(), alice, digest(40), 0, proof)
	require.NoError(t, err)

	require.NoError(t, f.ledger.SetPaused(owner, true))
	assert.Zero(t, f.ledger.ExpireIntents(f.clock.Now().Add(time.Hour)))
}

func TestEligibleCounterpart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice, bob)

	_, err := f.ledger.EligibleCounterpart(digest(40), bob)
	assertKind(t, err, aura.ErrNotFound)

	_, err = f.ledger.SubmitIntent(ctx, alice, digest(40), RegistrationAura+1, proof)
	require.NoError(t, err)

	eligible, err := f.ledger.EligibleCounterpart(digest(40), alice)
	require.NoError(t, err)
	assert.False(t, eligible, "owner is never its own counterpart")

	eligible, err = f.ledger.EligibleCounterpart(digest(40), bob)
	require.NoError(t, err)
	assert.False(t, eligible, "below threshold")

	require.NoError(t, f.ledger.AwardBonus(owner, bob, 1, "event"))
	eligible, err = f.ledger.EligibleCounterpart(digest(40), bob)
	require.NoError(t, err)
	assert.True(t, eligible)
}

func TestRecordMutualMatch(t *testing.T) {
	f := newFixture(t)
	f.register(t, alice, bob)

	m := f.match(t, alice, bob, 85)
	assert.False(t, m.ID.IsZero())
	assert.Equal(t, alice, m.ParticipantA)
	assert.Equal(t, bob, m.ParticipantB)
	assert.Equal(t, 85, m.CompatibilityScore)
	assert.False(t, m.RevealedA)
	assert.False(t, m.RevealedB)

	stored, err := f.ledger.Match(m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, stored)

	for _, p := range []aura.Principal{alice, bob} {
		profile, err := f.ledger.Profile(p)
		require.NoError(t, err)
		assert.Equal(t, RegistrationAura+MatchAura, profile.AuraPoints)
	}

	again := f.match(t, alice, bob, 85)
	assert.NotEqual(t, m.ID, again.ID, "rematching yields a fresh identifier")
	assert.Equal(t, uint64(2), f.ledger.Stats().TotalMatches)
}

func TestRecordMutualMatch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		caller aura.Principal
		a, b   aura.Principal
		score  int
		want   aura.Error
	}{
		{name: "not owner", caller: alice, a: alice, b: bob, score: 50, want: aura.ErrUnauthorized},
		{name: "self match", caller: owner, a: alice, b: alice, score: 50, want: aura.ErrSelfMatch},
		{name: "unregistered", caller: owner, a: alice, b: carol, score: 50, want: aura.ErrNotRegistered},
		{name: "score above range", caller: owner, a: alice, b: bob, score: 101, want: aura.ErrInvalidScore},
		{name: "negative score", caller: owner, a: alice, b: bob, score: -1, want: aura.ErrInvalidScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.register(t, alice, bob)

			_, err := f.ledger.RecordMutualMatch(context.Background(), tt.caller, tt.a, tt.b, tt.score, proof)
			assertKind(t, err, tt.want)
			assert.Zero(t, f.ledger.Stats().TotalMatches)
		})
	}
}

func TestRecordMutualMatch_InactiveParticipant(t *testing.T) {
	f := newFixture(t)
	f.register(t, alice, bob)
	require.NoError(t, f.ledger.SetActive(bob, bob, false))

	_, err := f.ledger.RecordMutualMatch(context.Background(), owner, alice, bob, 50, proof)
	assertKind(t, err, aura.ErrInactiveParticipant)
}

func TestDeriveMatchID(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, deriveMatchID(alice, bob, at, 1), deriveMatchID(alice, bob, at, 1))
	assert.NotEqual(t, deriveMatchID(alice, bob, at, 1), deriveMatchID(alice, bob, at, 2))
	assert.NotEqual(t, deriveMatchID(alice, bob, at, 1), deriveMatchID(bob, alice, at, 1))
	assert.NotEqual(t, deriveMatchID(alice, bob, at, 1), deriveMatchID(alice, bob, at.Add(time.Nanosecond), 1))
}
