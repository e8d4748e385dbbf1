package fmph

import (
	"context"
	"math/bits"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"

	"github.com/stefanfred/MPHF-Experiments/internal/workers"
)

// levelResult is the output of one level pass.
type levelResult struct {
	words []uint64 // placed-slot bits, size/64 words
	seeds []uint64 // packed group seeds (FMPH-GO only)
	next  []uint64 // key hashes evicted to the next level
}

// buildPlainLevel runs the two FMPH occupancy passes over keys.
//
// Pass 1 marks every candidate slot "used"; a second hit on a used slot marks
// it "collided". Both marks are atomic word ORs, so chunks run in parallel
// and the outcome is order independent. Pass 2 evicts every key whose slot
// collided. Evicted keys keep their input order.
func buildPlainLevel(ctx context.Context, keys []uint64, size, seed uint64, numWorkers int) (*levelResult, error) {
	used := bitset.New(uint(size))
	collided := bitset.New(uint(size))
	usedWords, collWords := used.Bytes(), collided.Bytes()

	err := workers.ForEachChunk(ctx, len(keys), keyChunkSize, numWorkers, func(_ context.Context, _, lo, hi int) error {
		for _, h := range keys[lo:hi] {
			p := levelSlot(levelHash(h, seed), size)
			w, m := p>>6, uint64(1)<<(p&63)
			if atomic.OrUint64(&usedWords[w], m)&m != 0 {
				atomic.OrUint64(&collWords[w], m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	used.InPlaceDifference(collided)

	evicted := make([][]uint64, workers.NumChunks(len(keys), keyChunkSize))
	err = workers.ForEachChunk(ctx, len(keys), keyChunkSize, numWorkers, func(_ context.Context, c, lo, hi int) error {
		var out []uint64
		for _, h := range keys[lo:hi] {
			p := levelSlot(levelHash(h, seed), size)
			if collWords[p>>6]&(1<<(p&63)) != 0 {
				out = append(out, h)
			}
		}
		evicted[c] = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &levelResult{words: used.Bytes(), next: concat(evicted)}, nil
}

// buildGroupedLevel runs one FMPH-GO level.
//
// Keys are counting-sorted by group. Each group then tries every group seed
// and keeps the one that leaves the most slots with exactly one key (lowest
// seed on ties). Groups are processed in chunks aligned to whole output
// words, so no two chunks write the same word.
func buildGroupedLevel(ctx context.Context, keys []uint64, size, seed uint64, numWorkers int) (*levelResult, error) {
	numGroups := size >> groupShift
	n := len(keys)

	levelHashes := make([]uint64, n)
	groups := make([]uint32, n)
	err := workers.ForEachChunk(ctx, n, keyChunkSize, numWorkers, func(_ context.Context, _, lo, hi int) error {
		for i := lo; i < hi; i++ {
			lh := levelHash(keys[i], seed)
			levelHashes[i] = lh
			groups[i] = uint32(groupOf(lh, numGroups))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Counting sort by group; starts[g]..starts[g+1] is group g's key range.
	starts := make([]uint32, numGroups+1)
	for _, g := range groups {
		starts[g+1]++
	}
	for g := uint64(1); g <= numGroups; g++ {
		starts[g] += starts[g-1]
	}
	cursor := append([]uint32(nil), starts[:numGroups]...)
	sortedLH := make([]uint64, n)
	sortedKeys := make([]uint64, n)
	for i, g := range groups {
		j := cursor[g]
		cursor[g]++
		sortedLH[j] = levelHashes[i]
		sortedKeys[j] = keys[i]
	}

	words := make([]uint64, size/64)
	seeds := make([]uint64, (numGroups+seedsPerWord-1)/seedsPerWord)
	evicted := make([][]uint64, workers.NumChunks(int(numGroups), groupChunkSize))

	err = workers.ForEachChunk(ctx, int(numGroups), groupChunkSize, numWorkers, func(_ context.Context, c, lo, hi int) error {
		var out []uint64
		for g := lo; g < hi; g++ {
			a, b := starts[g], starts[g+1]
			if a == b {
				continue
			}
			groupSeed, placed := chooseGroupSeed(sortedLH[a:b])
			words[g/(64/groupSize)] |= uint64(placed) << ((g % (64 / groupSize)) * groupSize)
			seeds[g>>groupSeedShift] |= uint64(groupSeed) << ((g & (seedsPerWord - 1)) * groupSeedBits)
			for j := a; j < b; j++ {
				if placed&(1<<inGroup(sortedLH[j], groupSeed)) == 0 {
					out = append(out, sortedKeys[j])
				}
			}
		}
		evicted[c] = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &levelResult{words: words, seeds: seeds, next: concat(evicted)}, nil
}

// chooseGroupSeed returns the group seed placing the most keys and the
// resulting placed-slot mask.
func chooseGroupSeed(levelHashes []uint64) (uint8, uint16) {
	var bestSeed uint8
	var bestMask uint16
	bestCount := -1
	for s := range numGroupSeeds {
		var used, collided uint16
		for _, lh := range levelHashes {
			bit := uint16(1) << inGroup(lh, uint8(s))
			collided |= used & bit
			used |= bit
		}
		mask := used &^ collided
		if c := bits.OnesCount16(mask); c > bestCount {
			bestSeed, bestMask, bestCount = uint8(s), mask, c
			if c == len(levelHashes) {
				break
			}
		}
	}
	return bestSeed, bestMask
}

func concat(parts [][]uint64) []uint64 {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]uint64, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
