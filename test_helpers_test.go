package mphf

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a generator seeded from the test name, so every test
// sees its own reproducible key set.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// fillFromRNG fills buf with pseudo-random bytes from rng.
func fillFromRNG(rng *rand.Rand, buf []byte) {
	for i := 0; i+8 <= len(buf); i += 8 {
		binary.LittleEndian.PutUint64(buf[i:], rng.Uint64())
	}
	if tail := len(buf) % 8; tail > 0 {
		v := rng.Uint64()
		start := len(buf) - tail
		for j := 0; j < tail; j++ {
			buf[start+j] = byte(v >> (j * 8))
		}
	}
}

// generateRandomKeys creates n distinct pseudo-random keys of keySize bytes.
// keySize must be at least 8.
func generateRandomKeys(rng *rand.Rand, n, keySize int) [][]byte {
	keys := make([][]byte, 0, n)
	seen := make(map[string]struct{}, n)
	for len(keys) < n {
		k := make([]byte, keySize)
		fillFromRNG(rng, k)
		if _, dup := seen[string(k)]; dup {
			continue
		}
		seen[string(k)] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// mustBuild builds f with a fixed seed and fails the test on error.
func mustBuild(t testing.TB, keys [][]byte, algo Algorithm, opts ...BuildOption) Function {
	t.Helper()
	opts = append([]BuildOption{WithSeed(testSeed1)}, opts...)
	f, err := Build(context.Background(), keys, algo, opts...)
	require.NoError(t, err, "Build(%s, n=%d)", algo, len(keys))
	return f
}

// requireBijective checks that f maps keys onto [0, len(keys)) without
// repeats.
func requireBijective(t testing.TB, f Function, keys [][]byte) {
	t.Helper()
	require.Equal(t, uint64(len(keys)), f.Len())
	seen := make([]bool, len(keys))
	for i, k := range keys {
		idx := f.Index(k)
		require.Less(t, idx, uint64(len(keys)), "key %d out of range", i)
		require.False(t, seen[idx], "key %d: index %d assigned twice", i, idx)
		seen[idx] = true
	}
}
