package zkproof

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"github.com/mymonad/aura/pkg/aura"
)

func testPrincipal(n byte) aura.Principal {
	var p aura.Principal
	p[0] = n
	p[31] = 0x42
	return p
}

func TestStatementCircuit_Solves(t *testing.T) {
	assert := test.NewAssert(t)

	secret := aura.Digest{0: 0x07, 31: 0x99}
	alice := testPrincipal(1)
	inputs := aura.RegistrationInputs(Commit(aura.CircuitRegistration, secret, alice.Digest()), alice)

	valid := statementAssignment(aura.CircuitRegistration, inputs)
	valid.Secret = toBig(secret)
	assert.SolvingSucceeded(NewStatementCircuit(aura.CircuitRegistration), valid, test.WithCurves(ecc.BN254))

	wrong := statementAssignment(aura.CircuitRegistration, inputs)
	wrong.Secret = 12345
	assert.SolvingFailed(NewStatementCircuit(aura.CircuitRegistration), wrong, test.WithCurves(ecc.BN254))

	// The same opening under another circuit's tag does not solve.
	other := statementAssignment(aura.CircuitPreferences, inputs)
	other.Secret = toBig(secret)
	assert.SolvingFailed(NewStatementCircuit(aura.CircuitPreferences), other, test.WithCurves(ecc.BN254))
}

func TestMatchAttestationCircuit_Solves(t *testing.T) {
	assert := test.NewAssert(t)
	a, b := testPrincipal(1), testPrincipal(2)

	assert.SolvingSucceeded(&MatchAttestationCircuit{},
		attestationAssignment(aura.MutualMatchInputs(a, b, 100)), test.WithCurves(ecc.BN254))
	assert.SolvingFailed(&MatchAttestationCircuit{},
		attestationAssignment(aura.MutualMatchInputs(a, a, 50)), test.WithCurves(ecc.BN254))
	assert.SolvingFailed(&MatchAttestationCircuit{},
		attestationAssignment(aura.MutualMatchInputs(a, b, 101)), test.WithCurves(ecc.BN254))
}

func TestInputCount(t *testing.T) {
	for _, c := range aura.Circuits {
		n, err := InputCount(c)
		require.NoError(t, err)
		require.Greater(t, n, 1, c)
	}

	_, err := InputCount("bogus")
	require.ErrorIs(t, err, ErrUnknownCircuit)
}
