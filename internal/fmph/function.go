// Package fmph implements the fingerprint-based multi-level MPHF (FMPH) and
// its group-optimized variant (FMPH-GO).
//
// Keys are placed level by level. A key stays in the first level where no
// other remaining key hashes to its slot; the rest are evicted to a smaller
// next level. The index of a key is the rank of its slot among all occupied
// slots of all levels.
//
// FMPH-GO splits each level into 16-slot groups and stores a 4-bit seed per
// group, chosen to maximize the keys placed in that group. More keys settle
// per level, so fewer levels and fewer bits per key are needed overall.
package fmph

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/bits-and-blooms/bitset"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
	intbits "github.com/stefanfred/MPHF-Experiments/internal/bits"
	"github.com/stefanfred/MPHF-Experiments/internal/encoding"
	"github.com/stefanfred/MPHF-Experiments/internal/hasher"
)

// NotFound is returned by Index for keys that match no level.
const NotFound = math.MaxUint64

// level describes one level inside the concatenated bit-vector.
type level struct {
	seed     uint64
	offset   uint64 // first bit of the level
	size     uint64 // bits, a multiple of 64
	seedBase uint64 // index of the level's first group seed (FMPH-GO)
}

// Function is an immutable FMPH or FMPH-GO function. Safe for concurrent use.
type Function struct {
	hasher     hasher.Hasher
	seed       uint64
	n          uint64
	grouped    bool
	levels     []level
	bits       *intbits.RankedBits
	groupSeeds []uint64
}

// Lookup returns the index of key. ok is false when the key matches no
// level, which proves it was not in the key set. ok is true for every member
// key but may also be true for a non-member.
func (f *Function) Lookup(key []byte) (uint64, bool) {
	h := f.hasher.Hash(key, f.seed)
	for i := range f.levels {
		lvl := &f.levels[i]
		lh := levelHash(h, lvl.seed)
		var pos uint64
		if f.grouped {
			g := groupOf(lh, lvl.size>>groupShift)
			pos = lvl.offset + g<<groupShift + uint64(inGroup(lh, f.groupSeed(lvl.seedBase+g)))
		} else {
			pos = lvl.offset + levelSlot(lh, lvl.size)
		}
		if f.bits.Test(pos) {
			return f.bits.Rank(pos), true
		}
	}
	return 0, false
}

// Index returns the index of key, or NotFound.
func (f *Function) Index(key []byte) uint64 {
	if idx, ok := f.Lookup(key); ok {
		return idx
	}
	return NotFound
}

func (f *Function) groupSeed(gi uint64) uint8 {
	return uint8(f.groupSeeds[gi>>groupSeedShift]>>((gi&(seedsPerWord-1))*groupSeedBits)) & (numGroupSeeds - 1)
}

// Len returns the number of keys.
func (f *Function) Len() uint64 { return f.n }

// Grouped reports whether f is an FMPH-GO function.
func (f *Function) Grouped() bool { return f.grouped }

// Levels returns the number of levels.
func (f *Function) Levels() int { return len(f.levels) }

// TotalSlots returns the summed size of all levels in bits.
func (f *Function) TotalSlots() uint64 { return f.bits.Len() }

// Seed returns the key hash seed the function was built with.
func (f *Function) Seed() uint64 { return f.seed }

// Hasher returns the key hasher.
func (f *Function) Hasher() hasher.Hasher { return f.hasher }

// SizeBytes returns the resident memory of the function.
func (f *Function) SizeBytes() int {
	return int(unsafe.Sizeof(*f)) +
		len(f.levels)*int(unsafe.Sizeof(level{})) +
		f.bits.SizeBytes() +
		len(f.groupSeeds)*8
}

// =============================================================================
// Serialization
// =============================================================================

// AppendTo serializes the function. The hasher kind is recorded by the
// caller; the rank directory is rebuilt on decode.
func (f *Function) AppendTo(w *encoding.Writer) {
	w.Uint64(f.n)
	w.Uint64(f.seed)
	if f.grouped {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
	w.Uint32(uint32(len(f.levels)))
	for _, lvl := range f.levels {
		w.Uint64(lvl.seed)
		w.Uint64(lvl.size)
	}
	w.Uint64s(f.bits.Words())
	w.Uint64s(f.groupSeeds)
}

// Decode reads a function written by AppendTo. Level geometry is recomputed
// and checked against the stored bit-vector, so a decoded function never
// reads out of bounds.
func Decode(r *encoding.Reader, h hasher.Hasher) (*Function, error) {
	f := &Function{
		hasher:  h,
		n:       r.Uint64(),
		seed:    r.Uint64(),
		grouped: r.Uint8() == 1,
	}
	numLevels := r.Uint32()
	if r.Err() == nil && numLevels > maxLevels {
		r.Fail(fmt.Errorf("%w: %d fmph levels", mphferrors.ErrCorruptedIndex, numLevels))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	var offset, seedBase uint64
	f.levels = make([]level, numLevels)
	for i := range f.levels {
		seed, size := r.Uint64(), r.Uint64()
		if size == 0 || size%64 != 0 || size > 1<<48 {
			r.Fail(fmt.Errorf("%w: fmph level %d size %d", mphferrors.ErrCorruptedIndex, i, size))
			break
		}
		f.levels[i] = level{seed: seed, offset: offset, size: size, seedBase: seedBase}
		offset += size
		if f.grouped {
			groups := size >> groupShift
			seedBase += (groups + seedsPerWord - 1) / seedsPerWord * seedsPerWord
		}
	}
	words := r.Uint64s()
	f.groupSeeds = r.Uint64s()
	if err := r.Err(); err != nil {
		return nil, err
	}

	if uint64(len(words))*64 != offset {
		return nil, fmt.Errorf("%w: fmph levels span %d bits, vector has %d",
			mphferrors.ErrCorruptedIndex, offset, len(words)*64)
	}
	if uint64(len(f.groupSeeds))*seedsPerWord != seedBase {
		return nil, fmt.Errorf("%w: fmph group seeds %d words, want %d",
			mphferrors.ErrCorruptedIndex, len(f.groupSeeds), seedBase/seedsPerWord)
	}
	f.bits = intbits.NewRankedBits(bitset.From(words))
	if f.bits.Ones() != f.n {
		return nil, fmt.Errorf("%w: fmph has %d occupied slots for %d keys",
			mphferrors.ErrCorruptedIndex, f.bits.Ones(), f.n)
	}
	return f, nil
}
