package fmph

import (
	intbits "github.com/stefanfred/MPHF-Experiments/internal/bits"
)

// levelMixC is the 64-bit golden ratio, used to spread (hash ^ levelSeed).
const levelMixC = 0x9E3779B97F4A7C15

// groupMul holds one odd multiplier per FMPH-GO group seed.
var groupMul = func() (m [numGroupSeeds]uint64) {
	for s := range m {
		m[s] = intbits.SplitMix64(uint64(s)+levelMixC) | 1
	}
	return m
}()

// levelHash derives a key's hash for one level from its key hash.
func levelHash(h, levelSeed uint64) uint64 {
	return intbits.Mix(h^levelSeed, levelMixC)
}

// levelSlot maps a level hash to a slot of a plain level.
func levelSlot(lh, size uint64) uint64 {
	return intbits.FastRange64(lh, size)
}

// groupOf maps a level hash to a group of a grouped level.
func groupOf(lh, numGroups uint64) uint64 {
	return intbits.FastRange64(lh, numGroups)
}

// inGroup returns the slot within a group for the given group seed.
func inGroup(lh uint64, seed uint8) uint {
	return uint(intbits.Mix(lh, groupMul[seed]) >> (64 - groupShift))
}
