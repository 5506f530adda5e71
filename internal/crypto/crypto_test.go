package crypto

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIdentity(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)

	assert.Len(t, id.SigningKey, ed25519.PrivateKeySize)
	assert.Equal(t, []byte(id.VerifyKey), id.Principal[:])
	assert.True(t, strings.HasPrefix(id.DID, DIDPrefix))
	assert.Equal(t, DIDPrefix+id.Principal.String(), id.DID)

	msg := []byte("hello")
	assert.True(t, ed25519.Verify(id.Principal.PublicKey(), msg, id.Sign(msg)))

	other, err := GenerateIdentity()
	require.NoError(t, err)
	assert.NotEqual(t, id.Principal, other.Principal)
}

func TestIdentity_Secret(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)

	assert.Equal(t, id.Secret("biometric"), id.Secret("biometric"))
	assert.NotEqual(t, id.Secret("biometric"), id.Secret("preferences"))
	assert.False(t, id.Secret("biometric").IsZero())

	other, err := GenerateIdentity()
	require.NoError(t, err)
	assert.NotEqual(t, id.Secret("biometric"), other.Secret("biometric"))
}

func TestSaveLoadIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.key")
	id, err := GenerateIdentity()
	require.NoError(t, err)

	require.NoError(t, SaveIdentity(id, path, "hunter2"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(keyFileMode), info.Mode().Perm())

	loaded, err := LoadIdentity(path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, id.Principal, loaded.Principal)
	assert.Equal(t, id.DID, loaded.DID)
	assert.Equal(t, id.Secret("x"), loaded.Secret("x"))

	_, err = LoadIdentity(path, "wrong")
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestLoadIdentity_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadIdentity(filepath.Join(dir, "missing"), "x")
	assert.Error(t, err)

	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte("tiny"), 0600))
	_, err = LoadIdentity(short, "x")
	assert.Error(t, err)
}

func TestMnemonic_Deterministic(t *testing.T) {
	id, mnemonic, err := NewIdentityWithMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(mnemonic), 24)

	recovered, err := IdentityFromMnemonic(mnemonic)
	require.NoError(t, err)
	assert.Equal(t, id.Principal, recovered.Principal)
	assert.Equal(t, id.Secret("biometric"), recovered.Secret("biometric"))

	_, err = IdentityFromMnemonic("not a valid mnemonic at all")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}
