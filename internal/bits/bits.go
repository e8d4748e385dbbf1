// Package bits provides low-level bit manipulation primitives shared by the
// MPHF families: range reduction, hash mixing, and in-word select.
package bits

import "math/bits"

// FastRange32 maps a 64-bit hash uniformly to [0, n) returning uint32.
// Uses the "fastrange" technique: multiply and take high bits.
// This is the standard way to map hashes to ranges without modulo bias.
func FastRange32(hash uint64, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, uint64(n))
	return uint32(hi)
}

// FastRange64 is FastRange32 for 64-bit ranges.
func FastRange64(hash uint64, n uint64) uint64 {
	hi, _ := bits.Mul64(hash, n)
	return hi
}

// SplitRange reduces hash to [0, n) like FastRange64 and additionally
// returns the low 64 bits of the product. The low half is uniform within the
// selected subrange, so it can feed a second, independent reduction.
func SplitRange(hash uint64, n uint64) (idx uint64, rest uint64) {
	return bits.Mul64(hash, n)
}

// Mix performs a 128-bit multiply and XOR fold (the WyHash mixing step).
func Mix(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return hi ^ lo
}

// SplitMix64 applies the SplitMix64 finalizer (Stafford variant 13).
func SplitMix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// SelectInWord returns the position of the k-th (0-based) set bit of w.
// The result is undefined when w has k or fewer set bits.
func SelectInWord(w uint64, k int) int {
	for ; k > 0; k-- {
		w &= w - 1
	}
	return bits.TrailingZeros64(w)
}
