package main

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/spaolacci/murmur3"
)

const (
	minStringKeyLen = 10
	maxStringKeyLen = 50

	// queryPlanSalt separates the query order from the key generator.
	queryPlanSalt = 0xbf58476d1ce4e5b9
)

// generateStringKeys returns n random alphanumeric strings of 10 to 50
// bytes.
func generateStringKeys(n int, seed uint64) [][]byte {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	rng := rand.New(rand.NewPCG(seed, seed^queryPlanSalt))
	keys := make([][]byte, n)
	for i := range keys {
		k := make([]byte, minStringKeyLen+rng.IntN(maxStringKeyLen-minStringKeyLen+1))
		for j := range k {
			k[j] = alphabet[rng.IntN(len(alphabet))]
		}
		keys[i] = k
	}
	return keys
}

// generateBinaryKeys returns n 16-byte keys: the 128-bit MurmurHash3 of the
// key's position. They are distinct unless the hash collides.
func generateBinaryKeys(n int, seed uint64) [][]byte {
	keys := make([][]byte, n)
	var buf [8]byte
	for i := range keys {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		h1, h2 := murmur3.Sum128WithSeed(buf[:], uint32(seed))
		k := make([]byte, 16)
		binary.LittleEndian.PutUint64(k[:8], h1)
		binary.LittleEndian.PutUint64(k[8:], h2)
		keys[i] = k
	}
	return keys
}

// dedup removes repeated keys, keeping the first occurrence.
func dedup(keys [][]byte) [][]byte {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, dup := seen[string(k)]; dup {
			continue
		}
		seen[string(k)] = struct{}{}
		out = append(out, k)
	}
	return out
}

// queryPlan returns numQueries*threads keys drawn uniformly with
// replacement from keys. Thread t queries plan[t*numQueries:(t+1)*numQueries].
func queryPlan(keys [][]byte, numQueries, threads int, seed uint64) [][]byte {
	if len(keys) == 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(queryPlanSalt^seed, seed))
	plan := make([][]byte, numQueries*threads)
	for i := range plan {
		plan[i] = keys[rng.IntN(len(keys))]
	}
	return plan
}
