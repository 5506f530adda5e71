package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymonad/aura/pkg/aura"
)

func TestInitiateReveal_BothOrders(t *testing.T) {
	orders := map[string][2]aura.Principal{
		"a then b": {alice, bob},
		"b then a": {bob, alice},
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.register(t, alice, bob)
			m := f.match(t, alice, bob, 70)

			first, err := f.ledger.InitiateReveal(ctx, order[0], m.ID, digest(60), proof)
			require.NoError(t, err)
			assert.False(t, first.MutuallyRevealed())
			assert.Zero(t, f.ledger.Stats().TotalReveals)

			second, err := f.ledger.InitiateReveal(ctx, order[1], m.ID, digest(61), proof)
			require.NoError(t, err)
			assert.True(t, second.RevealedA)
			assert.True(t, second.RevealedB)
			assert.True(t, second.MutuallyRevealed())

			assert.Equal(t, uint64(1), f.ledger.Stats().TotalReveals)
			assert.Equal(t, 2, f.sink.count(aura.EventRevealInitiated))
			assert.Equal(t, 2, f.sink.count(aura.EventRevealed))
		})
	}
}

func TestInitiateReveal_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice, bob)
	m := f.match(t, alice, bob, 70)

	_, err := f.ledger.InitiateReveal(ctx, alice, m.ID, digest(60), proof)
	require.NoError(t, err)
	again, err := f.ledger.InitiateReveal(ctx, alice, m.ID, digest(62), proof)
	require.NoError(t, err)

	assert.Equal(t, digest(60), again.RevealCommitmentA, "first reveal commitment is kept")
	assert.Equal(t, 1, f.sink.count(aura.EventRevealInitiated))
	assert.Len(t, f.ledger.RevealRecords(alice), 1)

	_, err = f.ledger.InitiateReveal(ctx, bob, m.ID, digest(61), proof)
	require.NoError(t, err)
	_, err = f.ledger.InitiateReveal(ctx, bob, m.ID, digest(61), proof)
	require.NoError(t, err)

	profile, err := f.ledger.Profile(alice)
	require.NoError(t, err)
	assert.Equal(t, RegistrationAura+MatchAura+RevealAura, profile.AuraPoints)
	assert.Equal(t, uint64(1), f.ledger.Stats().TotalReveals)
}

func TestInitiateReveal_ConcurrentExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.register(t, alice, bob)
	m := f.match(t, alice, bob, 70)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for _, p := range []aura.Principal{alice, bob} {
			wg.Add(1)
			go func(p aura.Principal) {
				defer wg.Done()
				_, err := f.ledger.InitiateReveal(context.Background(), p, m.ID, digest(p[0]+60), proof)
				assert.NoError(t, err)
			}(p)
		}
	}
	wg.Wait()

	assert.Equal(t, uint64(1), f.ledger.Stats().TotalReveals)
	assert.Equal(t, 2, f.sink.count(aura.EventRevealed))
	for _, p := range []aura.Principal{alice, bob} {
		profile, err := f.ledger.Profile(p)
		require.NoError(t, err)
		assert.Equal(t, RegistrationAura+MatchAura+RevealAura, profile.AuraPoints)
		assert.Equal(t, uint64(1), profile.RevealCount)
	}
}

func TestInitiateReveal_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice, bob, carol)
	m := f.match(t, alice, bob, 70)

	_, err := f.ledger.InitiateReveal(ctx, alice, digest(99), digest(60), proof)
	assertKind(t, err, aura.ErrNotFound)

	_, err = f.ledger.InitiateReveal(ctx, carol, m.ID, digest(60), proof)
	assertKind(t, err, aura.ErrNotParticipant)

	_, err = f.ledger.InitiateReveal(ctx, alice, m.ID, aura.Digest{}, proof)
	assertKind(t, err, aura.ErrInvalidCommitment)

	f.verifier.reject.Store(true)
	_, err = f.ledger.InitiateReveal(ctx, alice, m.ID, digest(60), proof)
	assertKind(t, err, aura.ErrInvalidProof)
	assert.False(t, f.ledger.HasRevealed(alice, bob))
}

func TestRevealRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice, bob, carol)
	ab := f.match(t, alice, bob, 70)
	ac := f.match(t, alice, carol, 40)

	_, err := f.ledger.InitiateReveal(ctx, bob, ab.ID, digest(60), proof)
	require.NoError(t, err)
	_, err = f.ledger.InitiateReveal(ctx, alice, ac.ID, digest(61), proof)
	require.NoError(t, err)

	records := f.ledger.RevealRecords(alice)
	require.Len(t, records, 1, "bob's reveal to alice is not hers")
	assert.Equal(t, alice, records[0].Revealer)
	assert.Equal(t, carol, records[0].Counterpart)
	assert.Equal(t, ac.ID, records[0].MatchID)

	records = f.ledger.RevealRecords(bob)
	require.Len(t, records, 1)
	assert.Equal(t, alice, records[0].Counterpart)
	assert.Equal(t, ab.ID, records[0].MatchID)

	assert.Empty(t, f.ledger.RevealRecords(carol))
	assert.True(t, f.ledger.HasRevealed(bob, alice))
	assert.False(t, f.ledger.HasRevealed(alice, bob))
}
