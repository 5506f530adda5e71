package zkproof

import (
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/blake2b"

	"github.com/mymonad/aura/pkg/aura"
)

type cacheKey [blake2b.Size256]byte

// resultCache remembers verification outcomes. Verification is
// deterministic, so the same circuit, proof and inputs always give the
// same answer.
type resultCache struct {
	lru *lru.Cache
}

// newResultCache returns nil when size is not positive; a nil cache
// misses every lookup.
func newResultCache(size int) (*resultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &resultCache{lru: c}, nil
}

func keyOf(circuit aura.Circuit, proof []byte, inputs []aura.Digest) cacheKey {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(circuit))
	h.Write([]byte{0})
	h.Write(binary.BigEndian.AppendUint32(nil, uint32(len(proof))))
	h.Write(proof)
	for _, in := range inputs {
		h.Write(in[:])
	}

	var k cacheKey
	copy(k[:], h.Sum(nil))
	return k
}

func (c *resultCache) get(k cacheKey) (bool, bool) {
	if c == nil {
		return false, false
	}
	v, ok := c.lru.Get(k)
	if !ok {
		return false, false
	}
	return v.(bool), true
}

func (c *resultCache) add(k cacheKey, valid bool) {
	if c == nil {
		return
	}
	c.lru.Add(k, valid)
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
