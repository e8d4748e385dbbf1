package fmph

import (
	"github.com/rs/zerolog"

	"github.com/stefanfred/MPHF-Experiments/internal/hasher"
)

const (
	// DefaultFillPercent makes every level exactly as large as the number of
	// keys still unplaced (γ = 1).
	DefaultFillPercent = 100

	// maxLevels caps the level count. At γ = 1 each level keeps about 37% of
	// its keys, so 2^32 keys settle in well under 64 levels.
	maxLevels = 128

	// maxLevelRetries bounds reseeding a level that placed no key at all.
	maxLevelRetries = 8

	// maxGlobalRetries bounds full restarts with a derived key hash seed.
	maxGlobalRetries = 3

	// keyChunkSize is the unit of parallel work in the occupancy passes. It
	// is fixed so results do not depend on the worker count.
	keyChunkSize = 1 << 14

	// groupShift sets the FMPH-GO group size: 16 slots per group.
	groupShift = 4
	groupSize  = 1 << groupShift

	// groupSeedBits is the width of a group seed; each group tries all
	// 2^groupSeedBits values.
	groupSeedBits  = 4
	numGroupSeeds  = 1 << groupSeedBits
	seedsPerWord   = 64 / groupSeedBits
	groupSeedShift = 4 // log2(seedsPerWord)

	// groupChunkSize is the unit of parallel work for group seed selection.
	// A multiple of seedsPerWord and of 64/groupSize, so chunks never share
	// an output word.
	groupChunkSize = 1 << 12
)

// Config holds FMPH build parameters.
type Config struct {
	Hasher hasher.Hasher
	Seed   uint64

	// FillPercent is γ in percent, 1..100. Level size is
	// ceil(unplaced * 100 / FillPercent) rounded up to 64 bits.
	FillPercent uint16

	// Grouped selects FMPH-GO.
	Grouped bool

	Workers int
	Logger  zerolog.Logger
}

// levelSize returns the bit size of a level holding keys unplaced keys.
func levelSize(keys int, fillPercent uint16) uint64 {
	size := (uint64(keys)*100 + uint64(fillPercent) - 1) / uint64(fillPercent)
	return (size + 63) &^ 63
}
