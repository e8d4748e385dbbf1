package mphf

import (
	"fmt"

	"github.com/rs/zerolog"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
	"github.com/stefanfred/MPHF-Experiments/internal/fmph"
)

// BuildOption is a functional option for configuring builds.
type BuildOption func(*buildConfig)

type buildConfig struct {
	workers     int // 0 = process-wide default, see SetParallelism
	seed        uint64
	fillPercent uint16 // FMPH families only
	hasher      HasherKind
	logger      zerolog.Logger
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		seed:        0x1234567890abcdef, // Arbitrary default; overridden via WithSeed
		fillPercent: fmph.DefaultFillPercent,
		hasher:      XXH3,
		logger:      zerolog.Nop(),
	}
}

func (c *buildConfig) validate() error {
	if c.fillPercent == 0 || c.fillPercent > 100 {
		return fmt.Errorf("%w: %d", mphferrors.ErrInvalidFillFactor, c.fillPercent)
	}
	if c.workers < 0 {
		return fmt.Errorf("%w: %d", mphferrors.ErrInvalidWorkers, c.workers)
	}
	return nil
}

// WithWorkers sets the number of parallel workers for one build, overriding
// the process-wide default.
func WithWorkers(n int) BuildOption {
	return func(c *buildConfig) {
		c.workers = n
	}
}

// WithSeed sets the key hash seed. Builds with the same keys, algorithm,
// options, and seed produce identical functions.
func WithSeed(seed uint64) BuildOption {
	return func(c *buildConfig) {
		c.seed = seed
	}
}

// WithFillFactor sets the FMPH fill factor γ in percent (1..100). Each
// level gets about 100/percent slots per unplaced key: a smaller γ means
// fewer, larger levels. PtrHash ignores the value, but it is validated for
// every algorithm.
func WithFillFactor(percent uint16) BuildOption {
	return func(c *buildConfig) {
		c.fillPercent = percent
	}
}

// WithHasher selects the key hash function. Default is XXH3.
func WithHasher(kind HasherKind) BuildOption {
	return func(c *buildConfig) {
		c.hasher = kind
	}
}

// WithLogger enables debug logging of construction progress. Builds are
// silent by default.
func WithLogger(logger zerolog.Logger) BuildOption {
	return func(c *buildConfig) {
		c.logger = logger
	}
}
