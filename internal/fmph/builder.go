package fmph

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/bits-and-blooms/bitset"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
	intbits "github.com/stefanfred/MPHF-Experiments/internal/bits"
	"github.com/stefanfred/MPHF-Experiments/internal/hasher"
	"github.com/stefanfred/MPHF-Experiments/internal/workers"
)

// levelSeedStream separates the level seed generator from the key hash seed.
const levelSeedStream = 0xD1B54A32D192ED03

// Build constructs an FMPH (or, with cfg.Grouped, FMPH-GO) function over keys.
//
// Keys must be distinct. Duplicates are detected only when they prevent
// construction from finishing, and are then reported as ErrDuplicateKey.
func Build(ctx context.Context, keys [][]byte, cfg Config) (*Function, error) {
	if cfg.FillPercent == 0 || cfg.FillPercent > 100 {
		return nil, fmt.Errorf("%w: %d", mphferrors.ErrInvalidFillFactor, cfg.FillPercent)
	}
	numWorkers := workers.Resolve(cfg.Workers)

	seed := cfg.Seed
	var stalled []uint64
	for attempt := range maxGlobalRetries {
		hashes, err := hasher.HashAll(ctx, cfg.Hasher, keys, seed, numWorkers)
		if err != nil {
			return nil, err
		}
		f, rest, err := build(ctx, hashes, seed, cfg, numWorkers)
		if err != nil {
			return nil, err
		}
		if rest == nil {
			return f, nil
		}
		stalled = rest

		if dup, ok := findDuplicate(keys, hashes, rest); ok {
			return nil, fmt.Errorf("%w: %w: %q", mphferrors.ErrPreconditionViolation, mphferrors.ErrDuplicateKey, dup)
		}
		cfg.Logger.Debug().
			Int("attempt", attempt).
			Uint64("seed", seed).
			Int("unplaced", len(rest)).
			Msg("fmph: construction stalled, restarting with a new seed")
		seed = nextSeed(seed)
	}
	return nil, fmt.Errorf("%w: fmph: %d keys unplaced after %d attempts",
		mphferrors.ErrConstructionExhausted, len(stalled), maxGlobalRetries)
}

// nextSeed derives the key hash seed for the next global attempt.
func nextSeed(seed uint64) uint64 {
	return intbits.SplitMix64(seed + levelSeedStream)
}

// build runs the level loop for one key hash seed. When the loop stalls it
// returns the unplaced hashes instead of a function.
func build(ctx context.Context, hashes []uint64, seed uint64, cfg Config, numWorkers int) (*Function, []uint64, error) {
	f := &Function{
		hasher:  cfg.Hasher,
		seed:    seed,
		n:       uint64(len(hashes)),
		grouped: cfg.Grouped,
	}
	rng := rand.New(rand.NewPCG(seed, seed^levelSeedStream))

	var words, groupSeeds []uint64
	current := hashes
	for len(current) > 0 {
		if len(f.levels) == maxLevels {
			return nil, current, nil
		}
		size := levelSize(len(current), cfg.FillPercent)

		var res *levelResult
		var levelSeed uint64
		for retry := 0; ; retry++ {
			if retry == maxLevelRetries {
				return nil, current, nil
			}
			levelSeed = rng.Uint64()
			var err error
			if cfg.Grouped {
				res, err = buildGroupedLevel(ctx, current, size, levelSeed, numWorkers)
			} else {
				res, err = buildPlainLevel(ctx, current, size, levelSeed, numWorkers)
			}
			if err != nil {
				return nil, nil, err
			}
			if len(res.next) < len(current) {
				break
			}
			cfg.Logger.Debug().
				Int("level", len(f.levels)).
				Int("retry", retry).
				Int("keys", len(current)).
				Msg("fmph: level placed no keys, reseeding")
		}

		f.levels = append(f.levels, level{
			seed:     levelSeed,
			offset:   uint64(len(words)) * 64,
			size:     size,
			seedBase: uint64(len(groupSeeds)) * seedsPerWord,
		})
		words = append(words, res.words...)
		groupSeeds = append(groupSeeds, res.seeds...)

		cfg.Logger.Debug().
			Int("level", len(f.levels)-1).
			Int("keys", len(current)).
			Int("placed", len(current)-len(res.next)).
			Uint64("slots", size).
			Msg("fmph: level built")
		current = res.next
	}

	f.bits = intbits.NewRankedBits(bitset.From(words))
	f.groupSeeds = groupSeeds
	return f, nil, nil
}

// findDuplicate looks for two byte-identical keys among those whose hash is
// in stalled. Only keys that blocked construction are compared.
func findDuplicate(keys [][]byte, hashes, stalled []uint64) ([]byte, bool) {
	wanted := make(map[uint64]struct{}, len(stalled))
	for _, h := range stalled {
		wanted[h] = struct{}{}
	}
	byHash := make(map[uint64][]int, len(stalled))
	for i, h := range hashes {
		if _, ok := wanted[h]; ok {
			byHash[h] = append(byHash[h], i)
		}
	}
	for _, idx := range byHash {
		for a := 0; a < len(idx); a++ {
			for b := a + 1; b < len(idx); b++ {
				if bytes.Equal(keys[idx[a]], keys[idx[b]]) {
					return keys[idx[a]], true
				}
			}
		}
	}
	return nil, false
}
