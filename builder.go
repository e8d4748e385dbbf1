package mphf

import (
	"context"
	"fmt"
	"time"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
	"github.com/stefanfred/MPHF-Experiments/internal/fmph"
	"github.com/stefanfred/MPHF-Experiments/internal/hasher"
	"github.com/stefanfred/MPHF-Experiments/internal/ptrhash"
)

// Build constructs a minimal perfect hash function over keys with the given
// algorithm.
//
// Keys must be distinct; this is the caller's obligation. Duplicates are
// detected only when they stop construction from finishing, and are then
// reported as ErrDuplicateKey wrapped in ErrPreconditionViolation. With
// duplicates that go undetected the function is undefined.
//
// Build blocks until the function is complete or ctx is canceled. Keys are
// not retained; the caller may reuse them once Build returns.
//
// Usage:
//
//	f, err := mphf.Build(ctx, keys, mphf.FMPHGO, mphf.WithFillFactor(90))
//	if err != nil { return err }
//	i := f.Index(key)
//
// Errors:
//   - ErrConstructionExhausted when bounded retries all failed
//   - ErrPreconditionViolation and ErrDuplicateKey for detected duplicates
//   - ErrInvalidFillFactor, ErrInvalidWorkers, ErrUnknownHasher for bad options
//   - ErrUnknownAlgorithm for an unknown algo
//   - ErrTooManyKeys for 2^32 or more keys with PtrHash
func Build(ctx context.Context, keys [][]byte, algo Algorithm, opts ...BuildOption) (Function, error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	h, err := hasher.New(cfg.hasher)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var f Function
	switch algo {
	case FMPH, FMPHGO:
		ff, err := fmph.Build(ctx, keys, fmph.Config{
			Hasher:      h,
			Seed:        cfg.seed,
			FillPercent: cfg.fillPercent,
			Grouped:     algo == FMPHGO,
			Workers:     cfg.workers,
			Logger:      cfg.logger,
		})
		if err != nil {
			return nil, err
		}
		f = &FMPHFunction{f: ff}
	case PtrHashFast, PtrHashCompact:
		pf, err := ptrhash.Build(ctx, keys, ptrhash.Config{
			Hasher:  h,
			Seed:    cfg.seed,
			Compact: algo == PtrHashCompact,
			Workers: cfg.workers,
			Logger:  cfg.logger,
		})
		if err != nil {
			return nil, err
		}
		f = &PtrHashFunction{f: pf}
	default:
		return nil, fmt.Errorf("%w: %d", mphferrors.ErrUnknownAlgorithm, algo)
	}

	cfg.logger.Debug().
		Stringer("algorithm", algo).
		Int("keys", len(keys)).
		Int("bytes", f.SizeBytes()).
		Float64("bits_per_key", BitsPerKey(f)).
		Dur("elapsed", time.Since(start)).
		Msg("mphf: built")
	return f, nil
}
