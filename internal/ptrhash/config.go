// Package ptrhash implements the PtrHash bucket-and-pilot MPHF.
//
// Keys are split into parts of at most maxBucketsPerPart buckets. Inside a
// part every bucket gets an 8-bit pilot such that the keys of all buckets
// land on distinct slots of a slightly oversized slot range; overflow slots
// are then remapped onto the holes below the part's key count.
//
// Two encodings are provided. The fast encoding stores pilots and the remap
// table as plain arrays. The compact encoding uses a skewed bucket function
// and stores both as Elias-Fano sequences.
package ptrhash

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/stefanfred/MPHF-Experiments/internal/hasher"
)

// Algorithm constants
const (
	// alpha is the load factor of a part's slot range.
	alpha = 0.99

	// lambdaFast and lambdaCompact are the average keys per bucket.
	lambdaFast    = 3.0
	lambdaCompact = 3.5

	// maxBucketsPerPart bounds the bucket count of a part. At λ = 3.5 a
	// part holds about 35,000 keys, well inside the uint16 slot range.
	maxBucketsPerPart = 10000

	// maxSlotsPerPart is the largest slot range a part may use. Remap
	// entries are uint16.
	maxSlotsPerPart = math.MaxUint16

	// numPilotValues is the total number of pilot values (0-255).
	numPilotValues = 256

	// maxPartAttempts bounds solver attempts per part. Each attempt seeds the
	// eviction phase differently.
	maxPartAttempts = 8

	// maxGlobalRetries is the maximum number of full restarts with a derived
	// key hash seed.
	maxGlobalRetries = 10

	// maxKeys is the largest key count; global indexes and part offsets are
	// uint32.
	maxKeys = math.MaxUint32
)

// BucketFn selects how a key's residual hash is mapped to a bucket.
type BucketFn uint8

const (
	// Linear spreads keys uniformly over the buckets.
	Linear BucketFn = iota
	// CubicEps skews keys towards low bucket indexes, producing a few large
	// buckets that are placed first and many small ones that fill gaps.
	CubicEps
)

func (b BucketFn) String() string {
	switch b {
	case Linear:
		return "linear"
	case CubicEps:
		return "cubic-eps"
	default:
		return "unknown"
	}
}

// Config holds PtrHash build parameters.
type Config struct {
	Hasher hasher.Hasher
	Seed   uint64

	// Compact selects the compact encoding and the CubicEps bucket function.
	Compact bool

	Workers int
	Logger  zerolog.Logger
}

func (c Config) bucketFn() BucketFn {
	if c.Compact {
		return CubicEps
	}
	return Linear
}

func (c Config) lambda() float64 {
	if c.Compact {
		return lambdaCompact
	}
	return lambdaFast
}

// computeNumSlots returns the slot count of a part holding numKeys keys.
// numSlots = ceil(numKeys / alpha), but always at least numKeys.
func computeNumSlots(numKeys int) uint32 {
	n := uint32(math.Ceil(float64(numKeys) / alpha))
	if n < uint32(numKeys) {
		n = uint32(numKeys)
	}
	return n
}

// layout describes how buckets are split into parts.
type layout struct {
	numParts       uint64
	bucketsPerPart uint64
}

// computeLayout returns the part layout for n keys at lambda keys per bucket.
// Parts have equal bucket counts; there is no part at all for n = 0.
func computeLayout(n uint64, lambda float64) layout {
	if n == 0 {
		return layout{}
	}
	totalBuckets := uint64(math.Ceil(float64(n) / lambda))
	numParts := (totalBuckets + maxBucketsPerPart - 1) / maxBucketsPerPart
	return layout{
		numParts:       numParts,
		bucketsPerPart: (totalBuckets + numParts - 1) / numParts,
	}
}

func (l layout) numBuckets() uint64 {
	return l.numParts * l.bucketsPerPart
}
