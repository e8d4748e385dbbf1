package ptrhash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
	intbits "github.com/stefanfred/MPHF-Experiments/internal/bits"
	"github.com/stefanfred/MPHF-Experiments/internal/hasher"
	"github.com/stefanfred/MPHF-Experiments/internal/workers"
)

const (
	// seedStream separates derived seeds from the key hash seed.
	seedStream = 0x9E3779B97F4A7C15

	// routeChunkSize is the unit of parallel work when routing keys to parts.
	routeChunkSize = 1 << 15
)

var (
	// errPartExhausted is returned when a part fails all its attempts.
	errPartExhausted = errors.New("ptrhash: part attempts exhausted")

	// errPartTooLarge is returned when a part needs more slots than a
	// remap entry can address.
	errPartTooLarge = errors.New("ptrhash: part exceeds slot limit")
)

// Build constructs a PtrHash function over keys.
//
// Keys must be distinct. Two keys are compared byte-wise only when their
// hashes are equal and fall in the same bucket; equal keys are then
// reported as ErrDuplicateKey.
func Build(ctx context.Context, keys [][]byte, cfg Config) (*Function, error) {
	n := uint64(len(keys))
	if n > maxKeys {
		return nil, fmt.Errorf("%w: %d", mphferrors.ErrTooManyKeys, n)
	}
	numWorkers := workers.Resolve(cfg.Workers)
	lay := computeLayout(n, cfg.lambda())

	seed := cfg.Seed
	var lastErr error
	for attempt := range maxGlobalRetries {
		hashes, err := hasher.HashAll(ctx, cfg.Hasher, keys, seed, numWorkers)
		if err != nil {
			return nil, err
		}
		f, err := build(ctx, hashes, seed, lay, cfg, numWorkers)
		if err == nil {
			cfg.Logger.Debug().
				Uint64("keys", n).
				Uint64("parts", lay.numParts).
				Uint64("buckets", lay.numBuckets()).
				Bool("compact", cfg.Compact).
				Int("attempt", attempt).
				Msg("ptrhash: built")
			return f, nil
		}

		var coll *hashCollisionError
		switch {
		case errors.As(err, &coll):
			if bytes.Equal(keys[coll.a], keys[coll.b]) {
				return nil, fmt.Errorf("%w: %w: %q", mphferrors.ErrPreconditionViolation, mphferrors.ErrDuplicateKey, keys[coll.a])
			}
		case errors.Is(err, errPartExhausted), errors.Is(err, errPartTooLarge):
		default:
			return nil, err
		}
		lastErr = err
		cfg.Logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Uint64("seed", seed).
			Msg("ptrhash: construction failed, restarting with a new seed")
		seed = nextSeed(seed)
	}
	return nil, fmt.Errorf("%w: ptrhash: %d attempts: %w", mphferrors.ErrConstructionExhausted, maxGlobalRetries, lastErr)
}

// nextSeed derives the key hash seed for the next global attempt.
func nextSeed(seed uint64) uint64 {
	return intbits.SplitMix64(seed + seedStream)
}

// partRNG returns the eviction-phase generator of one part attempt. It
// depends only on its arguments, so the result does not depend on which
// worker solves the part.
func partRNG(seed uint64, part, attempt int) *rand.Rand {
	return rand.New(rand.NewPCG(intbits.SplitMix64(seed^uint64(part)*seedStream), uint64(attempt)))
}

// build runs one construction with a fixed key hash seed.
func build(ctx context.Context, hashes []uint64, seed uint64, lay layout, cfg Config, numWorkers int) (*Function, error) {
	entries, keyOffsets, err := routeToParts(ctx, hashes, lay.numParts, numWorkers)
	if err != nil {
		return nil, err
	}

	remapOffsets, partSlots, err := partGeometry(keyOffsets)
	if err != nil {
		return nil, err
	}

	fn := cfg.bucketFn()
	bpp := lay.bucketsPerPart
	pilots := make([]uint8, lay.numBuckets())
	remap := make([]uint16, remapOffsets[lay.numParts])

	err = workers.Run(ctx, int(lay.numParts), numWorkers, newSolver, func(ctx context.Context, s *solver, part int) error {
		s.load(entries[keyOffsets[part]:keyOffsets[part+1]], lay.numParts, uint32(bpp), fn)
		dst := pilots[uint64(part)*bpp : uint64(part+1)*bpp]

		for attempt := range maxPartAttempts {
			s.reset(seed, dst)
			r, err := s.solve(partRNG(seed, part, attempt))
			if err == nil {
				copy(remap[remapOffsets[part]:remapOffsets[part+1]], r)
				if attempt > 0 {
					cfg.Logger.Debug().
						Int("part", part).
						Int("attempt", attempt).
						Msg("ptrhash: part solved after retry")
				}
				return nil
			}
			var coll *hashCollisionError
			if errors.As(err, &coll) {
				return err
			}
			cfg.Logger.Debug().
				Err(err).
				Int("part", part).
				Int("attempt", attempt).
				Int("keys", s.numKeys).
				Int("evictions", s.evictions).
				Msg("ptrhash: part attempt failed")
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return fmt.Errorf("%w: part %d after %d attempts", errPartExhausted, part, maxPartAttempts)
	})
	if err != nil {
		return nil, err
	}

	return newFunction(cfg.Hasher, seed, uint64(len(hashes)), cfg.Compact, lay, keyOffsets, remapOffsets, partSlots, pilots, remap)
}

// routeToParts groups key hashes by part. keyOffsets[p] is the number of
// keys in parts before p; keys keep their input order inside a part.
func routeToParts(ctx context.Context, hashes []uint64, numParts uint64, numWorkers int) ([]bucketEntry, []uint32, error) {
	partOf := make([]uint32, len(hashes))
	err := workers.ForEachChunk(ctx, len(hashes), routeChunkSize, numWorkers, func(_ context.Context, _, lo, hi int) error {
		for i := lo; i < hi; i++ {
			p, _ := route(hashes[i], numParts)
			partOf[i] = uint32(p)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	keyOffsets := make([]uint32, numParts+1)
	for _, p := range partOf {
		keyOffsets[p+1]++
	}
	for p := uint64(1); p <= numParts; p++ {
		keyOffsets[p] += keyOffsets[p-1]
	}

	cursor := append([]uint32(nil), keyOffsets[:numParts]...)
	entries := make([]bucketEntry, len(hashes))
	for i, p := range partOf {
		entries[cursor[p]] = bucketEntry{hash: hashes[i], key: uint32(i)}
		cursor[p]++
	}
	return entries, keyOffsets, nil
}

// partGeometry derives each part's slot count and the start of its entries
// in the concatenated remap table.
func partGeometry(keyOffsets []uint32) (remapOffsets, partSlots []uint32, err error) {
	numParts := len(keyOffsets) - 1
	remapOffsets = make([]uint32, numParts+1)
	partSlots = make([]uint32, numParts)
	for p := range numParts {
		k := int(keyOffsets[p+1] - keyOffsets[p])
		slots := computeNumSlots(k)
		if slots > maxSlotsPerPart {
			return nil, nil, fmt.Errorf("%w: part %d has %d keys", errPartTooLarge, p, k)
		}
		partSlots[p] = slots
		remapOffsets[p+1] = remapOffsets[p] + slots - uint32(k)
	}
	return remapOffsets, partSlots, nil
}
