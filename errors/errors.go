// Package errors defines all exported error sentinels for the mphf library.
//
// This is the single source of truth for error values. Both the top-level
// mphf package and internal algorithm packages import from here, so
// errors.Is checks work across package boundaries.
package errors

import "errors"

// Construction errors
var (
	ErrConstructionExhausted = errors.New("mphf: construction retries exhausted - retry with a different seed or parameters")
	ErrPreconditionViolation = errors.New("mphf: precondition violated")
	ErrDuplicateKey          = errors.New("mphf: duplicate key detected")
	ErrTooManyKeys           = errors.New("mphf: key count exceeds maximum (2^32-1)")
)

// Configuration errors
var (
	ErrInvalidFillFactor = errors.New("mphf: fill factor must be in [1, 100] percent")
	ErrUnknownAlgorithm  = errors.New("mphf: unknown algorithm")
	ErrUnknownHasher     = errors.New("mphf: unknown hasher")
	ErrParallelismLocked = errors.New("mphf: parallelism already configured")
	ErrInvalidWorkers    = errors.New("mphf: worker count must be positive")
)

// Handle errors
var (
	ErrHandleDestroyed = errors.New("mphf: handle is destroyed")
)

// Persistence errors
var (
	ErrInvalidMagic   = errors.New("mphf: invalid magic number")
	ErrInvalidVersion = errors.New("mphf: unsupported version")
	ErrChecksumFailed = errors.New("mphf: checksum verification failed")
	ErrTruncatedFile  = errors.New("mphf: serialized function is truncated")
	ErrCorruptedIndex = errors.New("mphf: serialized function is corrupted")
)

// Verification errors
var (
	ErrNotBijective = errors.New("mphf: function is not a bijection onto [0, n)")
)
