package ptrhash

import (
	"fmt"
	"unsafe"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
	"github.com/stefanfred/MPHF-Experiments/internal/encoding"
	"github.com/stefanfred/MPHF-Experiments/internal/hasher"
	"github.com/stefanfred/MPHF-Experiments/internal/succinct"
)

// Function is an immutable PtrHash function. Safe for concurrent use.
//
// Fast encoding:
//   - pilots: one byte per bucket
//   - remap: uint16 part-local targets, concatenated over parts
//
// Compact encoding:
//   - pilots: Elias-Fano over the numBuckets+1 pilot prefix sums
//   - remap: Elias-Fano over the global targets, non-decreasing
type Function struct {
	hasher  hasher.Hasher
	seed    uint64
	n       uint64
	compact bool
	fn      BucketFn
	layout  layout

	keyOffsets []uint32 // keys before each part, len numParts+1

	// Derived from keyOffsets, not serialized.
	remapOffsets []uint32 // remap entries before each part, len numParts+1
	partSlots    []uint32 // slot count of each part

	densePilots []uint8
	denseRemap  []uint16
	efPilots    *succinct.EliasFano
	efRemap     *succinct.EliasFano
}

func newFunction(h hasher.Hasher, seed, n uint64, compact bool, lay layout,
	keyOffsets, remapOffsets, partSlots []uint32, pilots []uint8, remap []uint16) (*Function, error) {
	f := &Function{
		hasher:       h,
		seed:         seed,
		n:            n,
		compact:      compact,
		layout:       lay,
		keyOffsets:   keyOffsets,
		remapOffsets: remapOffsets,
		partSlots:    partSlots,
	}
	f.fn = Config{Compact: compact}.bucketFn()
	if !compact {
		f.densePilots = pilots
		f.denseRemap = remap
		return f, nil
	}

	var err error
	if f.efPilots, err = succinct.NewEliasFano(pilotPrefixSums(pilots)); err != nil {
		return nil, err
	}
	if f.efRemap, err = succinct.NewEliasFano(globalRemap(keyOffsets, remapOffsets, remap)); err != nil {
		return nil, err
	}
	return f, nil
}

// pilotPrefixSums returns S with S[0] = 0 and S[b+1] = S[b] + pilots[b].
func pilotPrefixSums(pilots []uint8) []uint64 {
	sums := make([]uint64, len(pilots)+1)
	for b, p := range pilots {
		sums[b+1] = sums[b] + uint64(p)
	}
	return sums
}

// globalRemap converts part-local remap targets to global indexes. The
// result is non-decreasing: local targets never decrease inside a part, and
// every target of a part is below the first key of the next.
func globalRemap(keyOffsets, remapOffsets []uint32, remap []uint16) []uint64 {
	out := make([]uint64, len(remap))
	for p := 0; p+1 < len(keyOffsets); p++ {
		base := uint64(keyOffsets[p])
		for i := remapOffsets[p]; i < remapOffsets[p+1]; i++ {
			out[i] = base + uint64(remap[i])
		}
	}
	return out
}

func (f *Function) pilot(bucket uint64) uint8 {
	if f.compact {
		return uint8(f.efPilots.Diff(int(bucket)))
	}
	return f.densePilots[bucket]
}

// Index returns the index of key in [0, n). The result for a key outside
// the key set is an arbitrary value in [0, n).
func (f *Function) Index(key []byte) uint64 {
	if f.n == 0 {
		return 0
	}
	h := f.hasher.Hash(key, f.seed)
	part, rest := route(h, f.layout.numParts)
	bpp := f.layout.bucketsPerPart
	b := uint64(bucketOf(f.fn, rest, uint32(bpp)))

	pilot := f.pilot(part*bpp + b)
	numKeys := f.keyOffsets[part+1] - f.keyOffsets[part]
	slot := pilotSlot(h, pilot, f.seed, f.partSlots[part])
	if slot < numKeys {
		return uint64(f.keyOffsets[part]) + uint64(slot)
	}

	i := f.remapOffsets[part] + slot - numKeys
	if f.compact {
		return f.efRemap.Get(int(i))
	}
	return uint64(f.keyOffsets[part]) + uint64(f.denseRemap[i])
}

// Len returns the number of keys.
func (f *Function) Len() uint64 { return f.n }

// Compact reports whether f uses the compact encoding.
func (f *Function) Compact() bool { return f.compact }

// NumParts returns the number of parts.
func (f *Function) NumParts() int { return int(f.layout.numParts) }

// NumBuckets returns the total number of buckets.
func (f *Function) NumBuckets() uint64 { return f.layout.numBuckets() }

// Seed returns the key hash seed the function was built with.
func (f *Function) Seed() uint64 { return f.seed }

// Hasher returns the key hasher.
func (f *Function) Hasher() hasher.Hasher { return f.hasher }

// SizeBytes returns the resident memory of the function.
func (f *Function) SizeBytes() int {
	size := int(unsafe.Sizeof(*f)) +
		4*(len(f.keyOffsets)+len(f.remapOffsets)+len(f.partSlots)) +
		len(f.densePilots) + 2*len(f.denseRemap)
	if f.efPilots != nil {
		size += f.efPilots.SizeBytes()
	}
	if f.efRemap != nil {
		size += f.efRemap.SizeBytes()
	}
	return size
}

// =============================================================================
// Serialization
// =============================================================================

// AppendTo serializes the function. The hasher kind is recorded by the
// caller; remap offsets and part slot counts are rebuilt on decode.
func (f *Function) AppendTo(w *encoding.Writer) {
	w.Uint64(f.n)
	w.Uint64(f.seed)
	if f.compact {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
	w.Uint64(f.layout.numParts)
	w.Uint64(f.layout.bucketsPerPart)
	w.Uint32s(f.keyOffsets)
	if f.compact {
		f.efPilots.AppendTo(w)
		f.efRemap.AppendTo(w)
	} else {
		w.Uint8s(f.densePilots)
		w.Uint16s(f.denseRemap)
	}
}

// Decode reads a function written by AppendTo. The part layout, key offsets,
// and table lengths are checked so that every query stays in bounds.
func Decode(r *encoding.Reader, h hasher.Hasher) (*Function, error) {
	n := r.Uint64()
	seed := r.Uint64()
	compact := r.Uint8() == 1
	lay := layout{numParts: r.Uint64(), bucketsPerPart: r.Uint64()}
	keyOffsets := r.Uint32s()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if n > maxKeys {
		return nil, fmt.Errorf("%w: ptrhash key count %d", mphferrors.ErrCorruptedIndex, n)
	}
	if want := computeLayout(n, Config{Compact: compact}.lambda()); lay != want {
		return nil, fmt.Errorf("%w: ptrhash layout %+v, want %+v", mphferrors.ErrCorruptedIndex, lay, want)
	}
	if err := checkKeyOffsets(keyOffsets, lay.numParts, n); err != nil {
		return nil, err
	}
	remapOffsets, partSlots, err := partGeometry(keyOffsets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mphferrors.ErrCorruptedIndex, err)
	}
	numRemap := uint64(remapOffsets[lay.numParts])

	f := &Function{
		hasher:       h,
		seed:         seed,
		n:            n,
		compact:      compact,
		fn:           Config{Compact: compact}.bucketFn(),
		layout:       lay,
		keyOffsets:   keyOffsets,
		remapOffsets: remapOffsets,
		partSlots:    partSlots,
	}

	if !compact {
		f.densePilots = r.Uint8s()
		f.denseRemap = r.Uint16s()
		if err := r.Err(); err != nil {
			return nil, err
		}
		if uint64(len(f.densePilots)) != lay.numBuckets() || uint64(len(f.denseRemap)) != numRemap {
			return nil, fmt.Errorf("%w: ptrhash has %d pilots and %d remap entries, want %d and %d",
				mphferrors.ErrCorruptedIndex, len(f.densePilots), len(f.denseRemap), lay.numBuckets(), numRemap)
		}
		for p := uint64(0); p < lay.numParts; p++ {
			numKeys := keyOffsets[p+1] - keyOffsets[p]
			for _, t := range f.denseRemap[remapOffsets[p]:remapOffsets[p+1]] {
				if uint32(t) >= numKeys {
					return nil, fmt.Errorf("%w: ptrhash part %d remap target %d >= %d",
						mphferrors.ErrCorruptedIndex, p, t, numKeys)
				}
			}
		}
		return f, nil
	}

	if f.efPilots, err = succinct.DecodeEliasFano(r); err != nil {
		return nil, err
	}
	if f.efRemap, err = succinct.DecodeEliasFano(r); err != nil {
		return nil, err
	}
	if uint64(f.efPilots.Len()) != lay.numBuckets()+1 || uint64(f.efRemap.Len()) != numRemap {
		return nil, fmt.Errorf("%w: ptrhash has %d pilot sums and %d remap entries, want %d and %d",
			mphferrors.ErrCorruptedIndex, f.efPilots.Len(), f.efRemap.Len(), lay.numBuckets()+1, numRemap)
	}
	if numRemap > 0 && f.efRemap.Get(int(numRemap-1)) >= n {
		return nil, fmt.Errorf("%w: ptrhash remap target out of range", mphferrors.ErrCorruptedIndex)
	}
	return f, nil
}

// checkKeyOffsets validates per-part key offsets: numParts+1 entries
// starting at 0, non-decreasing, ending at n.
func checkKeyOffsets(keyOffsets []uint32, numParts, n uint64) error {
	if uint64(len(keyOffsets)) != numParts+1 {
		return fmt.Errorf("%w: ptrhash has %d key offsets for %d parts",
			mphferrors.ErrCorruptedIndex, len(keyOffsets), numParts)
	}
	if keyOffsets[0] != 0 || uint64(keyOffsets[numParts]) != n {
		return fmt.Errorf("%w: ptrhash key offsets span [%d, %d], want [0, %d]",
			mphferrors.ErrCorruptedIndex, keyOffsets[0], keyOffsets[numParts], n)
	}
	for p := uint64(1); p <= numParts; p++ {
		if keyOffsets[p] < keyOffsets[p-1] {
			return fmt.Errorf("%w: ptrhash key offsets decrease at part %d", mphferrors.ErrCorruptedIndex, p)
		}
	}
	return nil
}
