package ptrhash

import (
	"math/bits"

	intbits "github.com/stefanfred/MPHF-Experiments/internal/bits"
)

// pilotHashC is the multiplier applied to (pilot ^ seed) before mixing.
const pilotHashC = 0x517cc1b727220a95

// pilotHash returns the slot multiplier for a pilot.
//
// The SplitMix64 finalizer makes the 256 pilots behave as independent
// trials; "| 1" keeps the multiplier odd, so multiplying by it is a
// bijection on uint64 and never collapses to zero.
func pilotHash(pilot uint8, seed uint64) uint64 {
	return intbits.SplitMix64(pilotHashC*(uint64(pilot)^seed)) | 1
}

// foldHash prepares a key hash for slot computation. The bucket comes from
// the high bits of h, so the fold feeds the low bits into the slot too.
func foldHash(h uint64) uint64 {
	return h ^ (h >> 32)
}

// pilotSlotFolded maps a folded hash to [0, numSlots) under multiplier hp.
func pilotSlotFolded(folded, hp uint64, numSlots uint32) uint32 {
	hi, _ := bits.Mul64(folded*hp, uint64(numSlots))
	return uint32(hi)
}

// pilotSlot is pilotSlotFolded for an unfolded key hash.
func pilotSlot(h uint64, pilot uint8, seed uint64, numSlots uint32) uint32 {
	return pilotSlotFolded(foldHash(h), pilotHash(pilot, seed), numSlots)
}

// route splits a key hash into its part and the residual that selects the
// bucket inside the part.
func route(h, numParts uint64) (part, rest uint64) {
	return intbits.SplitRange(h, numParts)
}

// bucketOf maps a residual hash to a bucket of a part.
func bucketOf(fn BucketFn, rest uint64, numBuckets uint32) uint32 {
	if fn == CubicEps {
		return cubicEpsBucket(rest, numBuckets)
	}
	return intbits.FastRange32(rest, numBuckets)
}

// cubicEpsBucket computes a bucket index using the CubicEps distribution:
// x² × (1+x)/2 × 255/256 + x/256, scaled to numBuckets.
func cubicEpsBucket(x uint64, numBuckets uint32) uint32 {
	if numBuckets <= 1 {
		return 0
	}

	x2, _ := bits.Mul64(x, x)

	// (1+x)/2 in fixed point: the MSB represents +0.5.
	xHalf := (x >> 1) | (1 << 63)

	cubic, _ := bits.Mul64(x2, xHalf)
	scaled := (cubic/256)*255 + x/256

	return intbits.FastRange32(scaled, numBuckets)
}
