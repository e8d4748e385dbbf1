// Package hasher provides the seeded 64-bit key hashes used by every MPHF
// family.
//
// A key is hashed exactly once per query; all further randomness (level
// slots, bucket assignment, pilot slots) is derived from that single 64-bit
// value by cheap mixing.
package hasher

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
)

// Kind identifies a hash function. The value is persisted, so existing
// values must never be renumbered.
type Kind uint8

const (
	// XXH3 is the default: fastest on short keys.
	XXH3 Kind = iota
	// XXH64 is the classic xxHash64.
	XXH64
	// Murmur3 is MurmurHash3 x64 (64-bit half of the 128-bit variant).
	Murmur3
)

// String returns the hasher name.
func (k Kind) String() string {
	switch k {
	case XXH3:
		return "xxh3"
	case XXH64:
		return "xxh64"
	case Murmur3:
		return "murmur3"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Hasher hashes a key with a seed. Implementations are stateless and safe
// for concurrent use.
type Hasher interface {
	Hash(key []byte, seed uint64) uint64
	Kind() Kind
}

// New returns the Hasher for kind.
func New(kind Kind) (Hasher, error) {
	switch kind {
	case XXH3:
		return xxh3Hasher{}, nil
	case XXH64:
		return xxh64Hasher{}, nil
	case Murmur3:
		return murmur3Hasher{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", mphferrors.ErrUnknownHasher, kind)
	}
}

// ParseKind maps a hasher name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range []Kind{XXH3, XXH64, Murmur3} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", mphferrors.ErrUnknownHasher, name)
}

type xxh3Hasher struct{}

func (xxh3Hasher) Hash(key []byte, seed uint64) uint64 {
	return xxh3.HashSeed(key, seed)
}

func (xxh3Hasher) Kind() Kind { return XXH3 }

type xxh64Hasher struct{}

func (xxh64Hasher) Hash(key []byte, seed uint64) uint64 {
	var d xxhash.Digest
	d.ResetWithSeed(seed)
	_, _ = d.Write(key) // Digest.Write never fails
	return d.Sum64()
}

func (xxh64Hasher) Kind() Kind { return XXH64 }

type murmur3Hasher struct{}

// Hash folds the 64-bit seed into murmur3's 32-bit seed space and uses the
// first half of the 128-bit digest.
func (murmur3Hasher) Hash(key []byte, seed uint64) uint64 {
	h1, _ := murmur3.Sum128WithSeed(key, uint32(seed)^uint32(seed>>32))
	return h1
}

func (murmur3Hasher) Kind() Kind { return Murmur3 }
