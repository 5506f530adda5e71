package aura

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipal_RoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	p, err := PrincipalFromPublicKey(pub)
	require.NoError(t, err)
	assert.False(t, p.IsZero())
	assert.Equal(t, pub, p.PublicKey())

	parsed, err := ParsePrincipal(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	_, err = PrincipalFromPublicKey(pub[:10])
	assert.Error(t, err)
	_, err = ParsePrincipal("0OIl")
	assert.Error(t, err, "not base58")
	_, err = ParsePrincipal("3mJr7AoUXx2Wqd")
	assert.Error(t, err, "wrong length")
}

func TestDigest_Parse(t *testing.T) {
	d := DigestFromUint64(0x0102)
	assert.Equal(t, byte(0x01), d[30])
	assert.Equal(t, byte(0x02), d[31])

	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	parsed, err = ParseDigest(d.String()[2:])
	require.NoError(t, err, "prefix is optional")
	assert.Equal(t, d, parsed)

	_, err = ParseDigest("0x1234")
	assert.Error(t, err)
	_, err = ParseDigest("zz")
	assert.Error(t, err)
	assert.Equal(t, "00000000", d.Short())
}

func TestJSON_ZeroValuesAreEmpty(t *testing.T) {
	e := Event{ID: "x", Seq: 1, Kind: EventPaused, At: time.Unix(0, 0).UTC()}
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"principal":""`)

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Principal.IsZero())
	assert.True(t, decoded.MatchID.IsZero())
	assert.False(t, decoded.Active)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("%w: match 0a0b", ErrNotFound)
	assert.True(t, errors.Is(err, ErrNotFound))

	kind, ok := KindOf(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Equal(t, ErrNotFound, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)

	for _, k := range allErrors {
		parsed, ok := ParseError(fmt.Errorf("%w: detail", k).Error())
		require.True(t, ok, k)
		assert.Equal(t, k, parsed)

		parsed, ok = ParseError(string(k))
		require.True(t, ok, k)
		assert.Equal(t, k, parsed)
	}

	_, ok = ParseError("pausedness")
	assert.False(t, ok)
}

func TestMutualMatch_Helpers(t *testing.T) {
	a := Principal{0: 1}
	b := Principal{0: 2}
	m := MutualMatch{ParticipantA: a, ParticipantB: b}

	assert.True(t, m.HasParticipant(a))
	assert.True(t, m.HasParticipant(b))
	assert.False(t, m.HasParticipant(Principal{0: 3}))
	assert.Equal(t, b, m.Counterpart(a))
	assert.Equal(t, a, m.Counterpart(b))
	assert.False(t, m.MutuallyRevealed())
}

func TestIntent_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, MatchingIntent{}.Expired(now))
	assert.True(t, MatchingIntent{ExpiresAt: now}.Expired(now))
	assert.False(t, MatchingIntent{ExpiresAt: now.Add(time.Second)}.Expired(now))
}

func TestCircuitInputs(t *testing.T) {
	p := Principal{0: 7}
	c := Digest{31: 1}

	assert.Equal(t, []Digest{c, p.Digest()}, RegistrationInputs(c, p))
	assert.Equal(t, []Digest{c, p.Digest(), DigestFromUint64(50)}, MatchingInputs(c, p, 50))
	assert.Equal(t, DigestFromUint64(0), MutualMatchInputs(p, Principal{0: 8}, -5)[2])
	assert.Len(t, RevealInputs(c, c, p), 3)
}
