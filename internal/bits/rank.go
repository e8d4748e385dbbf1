package bits

import (
	"math/bits"
	"unsafe"

	"github.com/bits-and-blooms/bitset"
)

// Rank directory geometry. A 64-bit absolute count is kept per superblock
// and a 16-bit count relative to the superblock per block, so a rank query
// touches two counters and at most eight words.
const (
	blockShift      = 9  // 512-bit blocks
	superblockShift = 16 // 65536-bit superblocks
	wordsPerBlock   = 1 << (blockShift - 6)
)

// RankedBits is an immutable bit-vector with constant-time rank.
//
// The bits live in a bitset.BitSet; the rank directory is built once at
// construction and never modified, so concurrent readers need no locking.
type RankedBits struct {
	set   *bitset.BitSet
	words []uint64
	upper []uint64
	lower []uint16
	ones  uint64
}

// NewRankedBits builds the rank directory over set. The set must not be
// modified afterwards.
func NewRankedBits(set *bitset.BitSet) *RankedBits {
	words := set.Bytes()
	numBlocks := (len(words) + wordsPerBlock - 1) / wordsPerBlock
	numSupers := (len(words)*64)>>superblockShift + 1

	r := &RankedBits{
		set:   set,
		words: words,
		upper: make([]uint64, numSupers),
		lower: make([]uint16, numBlocks+1),
	}

	var total, superBase uint64
	for blk := 0; blk <= numBlocks; blk++ {
		bitPos := uint64(blk) << blockShift
		if bitPos&(1<<superblockShift-1) == 0 {
			sb := bitPos >> superblockShift
			if int(sb) < len(r.upper) {
				r.upper[sb] = total
			}
			superBase = total
		}
		r.lower[blk] = uint16(total - superBase)
		if blk == numBlocks {
			break
		}
		end := min((blk+1)*wordsPerBlock, len(words))
		for _, w := range words[blk*wordsPerBlock : end] {
			total += uint64(bits.OnesCount64(w))
		}
	}
	r.ones = total
	return r
}

// Len returns the number of bits.
func (r *RankedBits) Len() uint64 {
	return uint64(len(r.words)) * 64
}

// Ones returns the total number of set bits.
func (r *RankedBits) Ones() uint64 {
	return r.ones
}

// Test reports whether bit p is set.
func (r *RankedBits) Test(p uint64) bool {
	return r.set.Test(uint(p))
}

// Rank returns the number of set bits in [0, p). p may equal Len().
func (r *RankedBits) Rank(p uint64) uint64 {
	blk := p >> blockShift
	rank := r.upper[p>>superblockShift] + uint64(r.lower[blk])
	w := blk * wordsPerBlock
	end := p >> 6
	for ; w < end; w++ {
		rank += uint64(bits.OnesCount64(r.words[w]))
	}
	if rem := p & 63; rem != 0 {
		rank += uint64(bits.OnesCount64(r.words[end] & (1<<rem - 1)))
	}
	return rank
}

// Words exposes the backing words for serialization.
func (r *RankedBits) Words() []uint64 {
	return r.words
}

// SizeBytes returns the resident size of the bits and the rank directory.
func (r *RankedBits) SizeBytes() int {
	return int(unsafe.Sizeof(*r)) + len(r.words)*8 + len(r.upper)*8 + len(r.lower)*2
}
