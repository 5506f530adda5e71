package ipc

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/mymonad/aura/pkg/aura"
)

// Defaults for envelope authentication.
const (
	DefaultMaxClockSkew    = 30 * time.Second
	DefaultReplayCacheSize = 65536
)

// Signer signs envelopes on behalf of a principal.
type Signer interface {
	Sign(msg []byte) []byte
}

// SignedBytes returns the bytes a caller signs for one call:
// method || 0x00 || payload || timestamp (8 bytes, big-endian).
func SignedBytes(method string, payload []byte, timestamp int64) []byte {
	buf := make([]byte, 0, len(method)+1+len(payload)+8)
	buf = append(buf, method...)
	buf = append(buf, 0)
	buf = append(buf, payload...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp))
	return buf
}

// Seal builds a signed envelope for method carrying payload.
func Seal(signer Signer, caller aura.Principal, method string, payload any, now time.Time) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	ts := now.UnixMilli()
	return &Envelope{
		Caller:    caller.String(),
		Timestamp: ts,
		Payload:   raw,
		Signature: signer.Sign(SignedBytes(method, raw, ts)),
	}, nil
}

// Authenticator checks envelope signatures, freshness and replays.
type Authenticator struct {
	maxSkew time.Duration
	seen    *lru.Cache
	now     func() time.Time
}

// NewAuthenticator creates an Authenticator. Envelopes whose timestamp is
// further than maxSkew from the local clock are rejected, and a signature
// is accepted at most once while it stays in the replay cache.
func NewAuthenticator(maxSkew time.Duration, replayCacheSize int) (*Authenticator, error) {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxClockSkew
	}
	if replayCacheSize <= 0 {
		replayCacheSize = DefaultReplayCacheSize
	}
	seen, err := lru.New(replayCacheSize)
	if err != nil {
		return nil, err
	}
	return &Authenticator{maxSkew: maxSkew, seen: seen, now: time.Now}, nil
}

// Verify authenticates env for method and returns the caller.
func (a *Authenticator) Verify(method string, env *Envelope) (aura.Principal, error) {
	caller, err := aura.ParsePrincipal(env.Caller)
	if err != nil || caller.IsZero() {
		return aura.Principal{}, fmt.Errorf("%w: malformed caller", aura.ErrUnauthorized)
	}

	skew := a.now().Sub(time.UnixMilli(env.Timestamp))
	if skew < 0 {
		skew = -skew
	}
	if skew > a.maxSkew {
		return aura.Principal{}, fmt.Errorf("%w: timestamp outside allowed skew", aura.ErrUnauthorized)
	}

	if len(env.Signature) != ed25519.SignatureSize ||
		!ed25519.Verify(caller.PublicKey(), SignedBytes(method, env.Payload, env.Timestamp), env.Signature) {
		return aura.Principal{}, fmt.Errorf("%w: bad signature", aura.ErrUnauthorized)
	}

	if seen, _ := a.seen.ContainsOrAdd(string(env.Signature), struct{}{}); seen {
		return aura.Principal{}, fmt.Errorf("%w: replayed request", aura.ErrUnauthorized)
	}
	return caller, nil
}
