// Package succinct implements compressed integer sequences with random
// access, used by the compact PtrHash encoding.
package succinct

import (
	"errors"
	"fmt"
	"math/bits"
	"unsafe"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
	intbits "github.com/stefanfred/MPHF-Experiments/internal/bits"
	"github.com/stefanfred/MPHF-Experiments/internal/encoding"
)

// =============================================================================
// Elias-Fano Encoding
// =============================================================================

// Elias-Fano is a succinct encoding for non-decreasing sequences.
// For n values bounded by U it uses about n*floor(log2(U/n)) + 2n bits.
//
// Structure:
//   - Low bits: for each value v, (v & lowMask) packed with L bits,
//     L = floor(log2(U/n)).
//   - High bits: value i sets bit (v>>L) + i, so the high part of value i is
//     select1(i) - i.
//   - Select samples: the position of every 256th one, rebuilt on decode.

const selectSampleShift = 8

var errNotMonotone = errors.New("succinct: sequence is not non-decreasing")

// EliasFano is an immutable Elias-Fano sequence. Safe for concurrent reads.
type EliasFano struct {
	n       uint64
	lowBits uint
	low     []uint64
	high    []uint64
	samples []uint64
}

// computeLowBits computes the low bits width for n values bounded by u.
// L = max(0, floor(log2(u/n))).
func computeLowBits(n, u uint64) uint {
	if n == 0 || u <= n {
		return 0
	}
	return uint(bits.Len64(u/n) - 1)
}

// NewEliasFano encodes values, which must be non-decreasing.
func NewEliasFano(values []uint64) (*EliasFano, error) {
	n := uint64(len(values))
	ef := &EliasFano{n: n}
	if n == 0 {
		return ef, nil
	}

	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return nil, fmt.Errorf("%w: values[%d]=%d < values[%d]=%d",
				errNotMonotone, i, values[i], i-1, values[i-1])
		}
	}

	universe := values[n-1]
	ef.lowBits = computeLowBits(n, universe)

	if ef.lowBits > 0 {
		bw := newBitWriter(int(n) * int(ef.lowBits))
		for _, v := range values {
			bw.writeBits(v, int(ef.lowBits))
		}
		ef.low = bw.finish()
	}

	numHighBits := n + universe>>ef.lowBits + 1
	ef.high = make([]uint64, (numHighBits+63)/64)
	for i, v := range values {
		pos := v>>ef.lowBits + uint64(i)
		ef.high[pos>>6] |= 1 << (pos & 63)
	}

	ef.buildSamples()
	return ef, nil
}

// buildSamples records the position of every 2^selectSampleShift-th one and
// returns the total number of ones seen.
func (ef *EliasFano) buildSamples() uint64 {
	ef.samples = make([]uint64, 0, (ef.n>>selectSampleShift)+1)
	var ones uint64
	for w, word := range ef.high {
		for word != 0 {
			if ones&(1<<selectSampleShift-1) == 0 {
				ef.samples = append(ef.samples, uint64(w)<<6+uint64(bits.TrailingZeros64(word)))
			}
			ones++
			word &= word - 1
		}
	}
	return ones
}

// Len returns the number of values.
func (ef *EliasFano) Len() int {
	return int(ef.n)
}

// select1 returns the position of the i-th one in the high bits.
func (ef *EliasFano) select1(i uint64) uint64 {
	s := i >> selectSampleShift
	pos := ef.samples[s]
	k := int(i - s<<selectSampleShift)
	w := pos >> 6
	word := ef.high[w] &^ (uint64(1)<<(pos&63) - 1)
	for {
		c := bits.OnesCount64(word)
		if k < c {
			return w<<6 + uint64(intbits.SelectInWord(word, k))
		}
		k -= c
		w++
		word = ef.high[w]
	}
}

// nextOne returns the position of the first one strictly after pos.
func (ef *EliasFano) nextOne(pos uint64) uint64 {
	p := pos + 1
	w := p >> 6
	word := ef.high[w] &^ (uint64(1)<<(p&63) - 1)
	for word == 0 {
		w++
		word = ef.high[w]
	}
	return w<<6 + uint64(bits.TrailingZeros64(word))
}

func (ef *EliasFano) value(i, highPos uint64) uint64 {
	return (highPos-i)<<ef.lowBits | readBits(ef.low, i*uint64(ef.lowBits), ef.lowBits)
}

// Get returns value i.
func (ef *EliasFano) Get(i int) uint64 {
	idx := uint64(i)
	return ef.value(idx, ef.select1(idx))
}

// Diff returns Get(i+1) - Get(i) with a single select. Requires i+1 < Len().
func (ef *EliasFano) Diff(i int) uint64 {
	idx := uint64(i)
	p := ef.select1(idx)
	q := ef.nextOne(p)
	return ef.value(idx+1, q) - ef.value(idx, p)
}

// SizeBytes returns the resident size of the sequence.
func (ef *EliasFano) SizeBytes() int {
	return int(unsafe.Sizeof(*ef)) + 8*(len(ef.low)+len(ef.high)+len(ef.samples))
}

// AppendTo serializes the sequence. Select samples are not stored.
func (ef *EliasFano) AppendTo(w *encoding.Writer) {
	w.Uint64(ef.n)
	w.Uint8(uint8(ef.lowBits))
	w.Uint64s(ef.low)
	w.Uint64s(ef.high)
}

// DecodeEliasFano reads a sequence written by AppendTo and validates its
// geometry, so queries on a decoded sequence stay in bounds.
func DecodeEliasFano(r *encoding.Reader) (*EliasFano, error) {
	ef := &EliasFano{
		n:       r.Uint64(),
		lowBits: uint(r.Uint8()),
		low:     r.Uint64s(),
		high:    r.Uint64s(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if ef.lowBits >= 64 {
		return nil, fmt.Errorf("%w: elias-fano low bits %d", mphferrors.ErrCorruptedIndex, ef.lowBits)
	}
	if ef.n == 0 {
		if len(ef.low) != 0 || len(ef.high) != 0 {
			return nil, fmt.Errorf("%w: empty elias-fano with data", mphferrors.ErrCorruptedIndex)
		}
		return ef, nil
	}
	if ef.n > uint64(len(ef.high))*64 {
		return nil, fmt.Errorf("%w: elias-fano length %d exceeds high bits", mphferrors.ErrCorruptedIndex, ef.n)
	}
	if want := (ef.n*uint64(ef.lowBits) + 63) / 64; uint64(len(ef.low)) != want {
		return nil, fmt.Errorf("%w: elias-fano low words %d, want %d", mphferrors.ErrCorruptedIndex, len(ef.low), want)
	}
	if ones := ef.buildSamples(); ones != ef.n {
		return nil, fmt.Errorf("%w: elias-fano has %d ones, want %d", mphferrors.ErrCorruptedIndex, ones, ef.n)
	}
	return ef, nil
}
