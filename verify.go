package mphf

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
)

// Verify checks that f maps keys bijectively onto [0, len(keys)): every
// index is in range and no two keys share one. It returns ErrNotBijective
// naming the first offending key.
//
// Verify costs one query per key plus a compressed bitmap of the indexes
// seen so far.
func Verify(f Function, keys [][]byte) error {
	n := uint64(len(keys))
	if f.Len() != n {
		return fmt.Errorf("%w: function has %d keys, key set has %d", mphferrors.ErrNotBijective, f.Len(), n)
	}

	seen := roaring64.New()
	for i, key := range keys {
		idx := f.Index(key)
		if idx >= n {
			return fmt.Errorf("%w: key %d (%q) has index %d >= %d", mphferrors.ErrNotBijective, i, key, idx, n)
		}
		if seen.Contains(idx) {
			return fmt.Errorf("%w: key %d (%q) repeats index %d", mphferrors.ErrNotBijective, i, key, idx)
		}
		seen.Add(idx)
	}
	return nil
}
