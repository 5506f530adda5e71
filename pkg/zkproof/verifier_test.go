package zkproof

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymonad/aura/pkg/aura"
)

func TestVerifier_Verify_Total(t *testing.T) {
	compiled := setupCircuits(t, aura.CircuitRegistration)
	verifier := NewVerifier(compiled...)
	ctx := context.Background()
	inputs := aura.RegistrationInputs(aura.Digest{31: 1}, testPrincipal(1))

	assert.False(t, verifier.Verify(ctx, aura.CircuitRegistration, nil, inputs))
	assert.False(t, verifier.Verify(ctx, aura.CircuitRegistration, []byte("garbage"), inputs))
	assert.False(t, verifier.Verify(ctx, aura.CircuitRegistration, []byte("garbage"), nil))
	assert.False(t, verifier.Verify(ctx, aura.CircuitMatching, []byte("garbage"), inputs))
	assert.False(t, verifier.Verify(ctx, "bogus", nil, nil))
}

func TestVerifier_Verify_CancelledContext(t *testing.T) {
	compiled := setupCircuits(t, aura.CircuitRegistration)
	prover := NewProver(compiled...)
	verifier := NewVerifier(compiled...)

	alice := testPrincipal(1)
	secret := aura.Digest{31: 3}
	inputs := aura.RegistrationInputs(Commit(aura.CircuitRegistration, secret, alice.Digest()), alice)
	proof, err := prover.ProveStatement(aura.CircuitRegistration, secret, inputs)
	require.NoError(t, err)

	assert.True(t, verifier.Verify(context.Background(), aura.CircuitRegistration, proof, inputs))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, verifier.Verify(ctx, aura.CircuitRegistration, proof, inputs))
}

func TestVerifier_Circuits(t *testing.T) {
	compiled := setupCircuits(t, aura.CircuitMutualMatch, aura.CircuitRegistration)
	verifier := NewVerifier(compiled...)

	assert.Equal(t, []aura.Circuit{aura.CircuitRegistration, aura.CircuitMutualMatch}, verifier.Circuits())
}
