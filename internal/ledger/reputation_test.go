package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymonad/aura/pkg/aura"
)

func TestAwardBonus(t *testing.T) {
	f := newFixture(t)
	f.register(t, alice)

	assertKind(t, f.ledger.AwardBonus(alice, alice, 10, "self"), aura.ErrUnauthorized)
	assertKind(t, f.ledger.AwardBonus(owner, bob, 10, "event"), aura.ErrNotRegistered)

	require.NoError(t, f.ledger.AwardBonus(owner, alice, 10, "event"))
	profile, err := f.ledger.Profile(alice)
	require.NoError(t, err)
	assert.Equal(t, RegistrationAura+10, profile.AuraPoints)
}

func TestAwardBonus_Saturates(t *testing.T) {
	f := newFixture(t)
	f.register(t, alice)

	require.NoError(t, f.ledger.AwardBonus(owner, alice, ^uint64(0), "whale"))
	profile, err := f.ledger.Profile(alice)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), profile.AuraPoints)
}

func TestDeductPenalty_FloorsAtZero(t *testing.T) {
	f := newFixture(t)
	f.register(t, alice)

	removed, err := f.ledger.DeductPenalty(owner, alice, 30, "spam")
	require.NoError(t, err)
	assert.Equal(t, uint64(30), removed)

	removed, err = f.ledger.DeductPenalty(owner, alice, 1000, "abuse")
	require.NoError(t, err)
	assert.Equal(t, RegistrationAura-30, removed)

	profile, err := f.ledger.Profile(alice)
	require.NoError(t, err)
	assert.Zero(t, profile.AuraPoints)

	f.sink.mu.Lock()
	last := f.sink.events[len(f.sink.events)-1]
	f.sink.mu.Unlock()
	assert.Equal(t, aura.EventAuraDeducted, last.Kind)
	assert.Equal(t, uint64(1000), last.Requested)
	assert.Equal(t, RegistrationAura-30, last.Points)
	assert.Equal(t, "abuse", last.Reason)
}

func TestDeductPenalty_Errors(t *testing.T) {
	f := newFixture(t)
	f.register(t, alice)

	_, err := f.ledger.DeductPenalty(alice, alice, 1, "x")
	assertKind(t, err, aura.ErrUnauthorized)
	_, err = f.ledger.DeductPenalty(owner, carol, 1, "x")
	assertKind(t, err, aura.ErrNotRegistered)
}
