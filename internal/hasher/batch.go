package hasher

import (
	"context"

	"github.com/stefanfred/MPHF-Experiments/internal/workers"
)

// batchChunkSize is the number of keys hashed per parallel task.
const batchChunkSize = 1 << 15

// HashAll hashes every key with seed on up to numWorkers goroutines.
// hashes[i] corresponds to keys[i].
func HashAll(ctx context.Context, h Hasher, keys [][]byte, seed uint64, numWorkers int) ([]uint64, error) {
	hashes := make([]uint64, len(keys))
	err := workers.ForEachChunk(ctx, len(keys), batchChunkSize, numWorkers, func(_ context.Context, _, lo, hi int) error {
		for i := lo; i < hi; i++ {
			hashes[i] = h.Hash(keys[i], seed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hashes, nil
}
