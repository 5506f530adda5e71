// Package aura defines the domain types shared by the aura ledger, its RPC
// surface and its clients: principals, commitments, profiles, matches,
// events and the error taxonomy.
package aura

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// PrincipalSize is the size of a principal in bytes.
const PrincipalSize = 32

// DigestSize is the size of a commitment digest in bytes.
const DigestSize = 32

// Principal is a pseudonymous actor identity. Concretely it is the raw
// ed25519 public key of the actor; the zero value is the null principal.
type Principal [PrincipalSize]byte

// PrincipalFromPublicKey converts an ed25519 public key into a Principal.
func PrincipalFromPublicKey(pub ed25519.PublicKey) (Principal, error) {
	var p Principal
	if len(pub) != ed25519.PublicKeySize {
		return p, fmt.Errorf("public key has %d bytes, expected %d", len(pub), ed25519.PublicKeySize)
	}
	copy(p[:], pub)
	return p, nil
}

// ParsePrincipal decodes the base58 text form of a principal.
func ParsePrincipal(s string) (Principal, error) {
	var p Principal
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return p, fmt.Errorf("decode principal %q: %w", s, err)
	}
	if len(raw) != PrincipalSize {
		return p, fmt.Errorf("principal %q has %d bytes, expected %d", s, len(raw), PrincipalSize)
	}
	copy(p[:], raw)
	return p, nil
}

// IsZero reports whether p is the null principal.
func (p Principal) IsZero() bool {
	return p == Principal{}
}

// PublicKey returns the ed25519 public key backing the principal.
func (p Principal) PublicKey() ed25519.PublicKey {
	key := make(ed25519.PublicKey, PrincipalSize)
	copy(key, p[:])
	return key
}

// Digest returns the principal as a digest, for use as a proof public input.
func (p Principal) Digest() Digest {
	return Digest(p)
}

// String returns the base58 form of the principal.
func (p Principal) String() string {
	return base58.Encode(p[:])
}

// MarshalText implements encoding.TextMarshaler. The null principal
// marshals to empty text.
func (p Principal) MarshalText() ([]byte, error) {
	if p.IsZero() {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Principal) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = Principal{}
		return nil
	}
	parsed, err := ParsePrincipal(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Digest is an opaque fixed-size commitment (biometric, preferences,
// matching or disclosure commitment, or a derived identifier).
type Digest [DigestSize]byte

// ParseDigest decodes a hex digest, with or without a 0x prefix.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("decode digest: %w", err)
	}
	if len(raw) != DigestSize {
		return d, fmt.Errorf("digest has %d bytes, expected %d", len(raw), DigestSize)
	}
	copy(d[:], raw)
	return d, nil
}

// DigestFromUint64 encodes v big-endian into the low bytes of a digest.
func DigestFromUint64(v uint64) Digest {
	var d Digest
	binary.BigEndian.PutUint64(d[DigestSize-8:], v)
	return d
}

// IsZero reports whether d is the all-zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// String returns the 0x-prefixed hex form of the digest.
func (d Digest) String() string {
	return "0x" + hex.EncodeToString(d[:])
}

// Short returns an abbreviated form for logs.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:4])
}

// MarshalText implements encoding.TextMarshaler. The zero digest
// marshals to empty text.
func (d Digest) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Digest{}
		return nil
	}
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
