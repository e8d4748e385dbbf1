// Package mphf builds and queries minimal perfect hash functions (MPHFs).
//
// An MPHF maps each key of a fixed set of n distinct byte strings to a
// distinct index in [0, n) in O(1) time, using a few bits per key. Four
// algorithms are available, in two families:
//
//   - FMPH and FMPH-GO: multi-level fingerprint functions. Keys that land
//     alone in a level's slot are placed there; colliding keys move on to
//     the next level. FMPH-GO picks a 4-bit seed per 16-slot group and is
//     smaller at the same fill factor.
//   - PtrHash-fast and PtrHash-compact: bucket and pilot displacement. Each
//     bucket stores an 8-bit pilot that sends its keys to free slots.
//     The fast variant keeps plain pilot and remap arrays; the compact
//     variant stores both as Elias-Fano sequences.
//
// # Basic Usage
//
// Building a function:
//
//	f, err := mphf.Build(ctx, keys, mphf.PtrHashCompact)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	i := f.Index([]byte("mykey")) // in [0, len(keys))
//
// Keys must be distinct. Querying a key outside the build set returns an
// arbitrary index; FMPH-family functions also implement Lookuper, which
// can report some non-members.
//
// Persisting a function:
//
//	if err := mphf.WriteFile("keys.mphf", f); err != nil {
//	    log.Fatal(err)
//	}
//	f, err = mphf.Open("keys.mphf")
//
// # Package Structure
//
//   - Public API: builder.go (Build), algorithm.go (Algorithm, Function),
//     handle.go (Handle lifecycle), parallelism.go (SetParallelism)
//   - Configuration: builder_options.go (BuildOption, With* functions)
//   - Serialization: header.go (header, footer), index.go (Open, OpenBytes),
//     index_writer.go (Marshal, WriteFile)
//   - Checking: verify.go (Verify)
//   - Families: internal/fmph/ (FMPH, FMPH-GO), internal/ptrhash/ (PtrHash)
//   - Shared: internal/hasher, internal/bits, internal/succinct,
//     internal/encoding, internal/workers
//   - Platform: fadvise_*.go, fallocate_*.go, prefault_*.go
package mphf
