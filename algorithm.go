package mphf

import (
	"fmt"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
	"github.com/stefanfred/MPHF-Experiments/internal/encoding"
	"github.com/stefanfred/MPHF-Experiments/internal/fmph"
	"github.com/stefanfred/MPHF-Experiments/internal/hasher"
	"github.com/stefanfred/MPHF-Experiments/internal/ptrhash"
)

// Algorithm identifies an MPHF algorithm. This is stored in the file header,
// so existing values must never be renumbered.
type Algorithm uint16

const (
	// FMPH is the multi-level fingerprint function.
	FMPH Algorithm = 0

	// FMPHGO is FMPH with per-group seeds (grouped, ordered).
	FMPHGO Algorithm = 1

	// PtrHashFast is PtrHash with a linear bucket function and plain arrays.
	PtrHashFast Algorithm = 2

	// PtrHashCompact is PtrHash with a cubic-epsilon bucket function and
	// Elias-Fano encoded pilots and remap.
	PtrHashCompact Algorithm = 3
)

// Algorithms lists every algorithm in a stable order.
var Algorithms = []Algorithm{FMPH, FMPHGO, PtrHashFast, PtrHashCompact}

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case FMPH:
		return "fmph"
	case FMPHGO:
		return "fmph-go"
	case PtrHashFast:
		return "ptrhash-fast"
	case PtrHashCompact:
		return "ptrhash-compact"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps an algorithm name back to its Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	for _, a := range Algorithms {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", mphferrors.ErrUnknownAlgorithm, name)
}

// Family groups algorithms that share a construction scheme.
type Family uint8

const (
	// FamilyFMPH covers FMPH and FMPH-GO.
	FamilyFMPH Family = iota
	// FamilyPtrHash covers PtrHash-fast and PtrHash-compact.
	FamilyPtrHash
)

// AlgorithmFor returns the fast or compact member of a family. The compact
// FMPH variant is FMPH-GO.
func AlgorithmFor(family Family, compact bool) (Algorithm, error) {
	switch family {
	case FamilyFMPH:
		if compact {
			return FMPHGO, nil
		}
		return FMPH, nil
	case FamilyPtrHash:
		if compact {
			return PtrHashCompact, nil
		}
		return PtrHashFast, nil
	default:
		return 0, fmt.Errorf("%w: family %d", mphferrors.ErrUnknownAlgorithm, family)
	}
}

// Family returns the family of a.
func (a Algorithm) Family() Family {
	if a == PtrHashFast || a == PtrHashCompact {
		return FamilyPtrHash
	}
	return FamilyFMPH
}

// HasherKind selects the key hash function.
type HasherKind = hasher.Kind

// Key hash functions. XXH3 is the default.
const (
	XXH3    = hasher.XXH3
	XXH64   = hasher.XXH64
	Murmur3 = hasher.Murmur3
)

// NotFound is returned by FMPH-family Index for a key that matches no
// level. Such a key is certainly not in the build set.
const NotFound = fmph.NotFound

// Function is a built minimal perfect hash function.
//
// # Thread Safety
//
// A Function is immutable. All methods are safe for concurrent use and
// Index does not allocate.
type Function interface {
	// Index returns the index of key in [0, Len()). For a key outside the
	// build set the result is arbitrary: PtrHash functions return a value in
	// that range (0 when Len() is 0), FMPH functions may return NotFound.
	Index(key []byte) uint64

	// Len returns the number of keys.
	Len() uint64

	// SizeBytes returns the resident memory of the function.
	SizeBytes() int

	// Algorithm returns the algorithm that built the function.
	Algorithm() Algorithm

	// Seed returns the key hash seed. It can differ from the requested
	// seed when construction had to restart.
	Seed() uint64

	// HasherKind returns the key hash function.
	HasherKind() HasherKind

	// appendTo writes the algorithm body of the persisted format.
	appendTo(w *encoding.Writer)
}

// Lookuper is implemented by functions that can reject some keys outside
// the build set.
type Lookuper interface {
	// Lookup returns the index of key and true, or false when key is
	// certainly not in the build set.
	Lookup(key []byte) (uint64, bool)
}

// BitsPerKey returns the size of f in bits divided by its key count, or 0
// for an empty function.
func BitsPerKey(f Function) float64 {
	if f.Len() == 0 {
		return 0
	}
	return float64(f.SizeBytes()*8) / float64(f.Len())
}

// FMPHFunction is an FMPH or FMPH-GO function.
type FMPHFunction struct {
	f *fmph.Function
}

var (
	_ Function = (*FMPHFunction)(nil)
	_ Lookuper = (*FMPHFunction)(nil)
)

// Index implements Function.
func (f *FMPHFunction) Index(key []byte) uint64 { return f.f.Index(key) }

// Lookup implements Lookuper. A key outside the build set that matches no
// level is rejected.
func (f *FMPHFunction) Lookup(key []byte) (uint64, bool) { return f.f.Lookup(key) }

// Len implements Function.
func (f *FMPHFunction) Len() uint64 { return f.f.Len() }

// SizeBytes implements Function.
func (f *FMPHFunction) SizeBytes() int { return f.f.SizeBytes() }

// Algorithm implements Function.
func (f *FMPHFunction) Algorithm() Algorithm {
	if f.f.Grouped() {
		return FMPHGO
	}
	return FMPH
}

// Seed implements Function.
func (f *FMPHFunction) Seed() uint64 { return f.f.Seed() }

// HasherKind implements Function.
func (f *FMPHFunction) HasherKind() HasherKind { return f.f.Hasher().Kind() }

// Levels returns the number of levels.
func (f *FMPHFunction) Levels() int { return f.f.Levels() }

// TotalSlots returns the number of slots over all levels.
func (f *FMPHFunction) TotalSlots() uint64 { return f.f.TotalSlots() }

func (f *FMPHFunction) appendTo(w *encoding.Writer) { f.f.AppendTo(w) }

// PtrHashFunction is a PtrHash-fast or PtrHash-compact function.
type PtrHashFunction struct {
	f *ptrhash.Function
}

var _ Function = (*PtrHashFunction)(nil)

// Index implements Function.
func (f *PtrHashFunction) Index(key []byte) uint64 { return f.f.Index(key) }

// Len implements Function.
func (f *PtrHashFunction) Len() uint64 { return f.f.Len() }

// SizeBytes implements Function.
func (f *PtrHashFunction) SizeBytes() int { return f.f.SizeBytes() }

// Algorithm implements Function.
func (f *PtrHashFunction) Algorithm() Algorithm {
	if f.f.Compact() {
		return PtrHashCompact
	}
	return PtrHashFast
}

// Seed implements Function.
func (f *PtrHashFunction) Seed() uint64 { return f.f.Seed() }

// HasherKind implements Function.
func (f *PtrHashFunction) HasherKind() HasherKind { return f.f.Hasher().Kind() }

// NumParts returns the number of independently solved parts.
func (f *PtrHashFunction) NumParts() int { return f.f.NumParts() }

// NumBuckets returns the total number of buckets.
func (f *PtrHashFunction) NumBuckets() uint64 { return f.f.NumBuckets() }

func (f *PtrHashFunction) appendTo(w *encoding.Writer) { f.f.AppendTo(w) }

// decodeFunction reads the algorithm body written by Function.appendTo.
func decodeFunction(algo Algorithm, kind HasherKind, body []byte) (Function, error) {
	h, err := hasher.New(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mphferrors.ErrCorruptedIndex, err)
	}
	r := encoding.NewReader(body)

	var f Function
	switch algo {
	case FMPH, FMPHGO:
		ff, err := fmph.Decode(r, h)
		if err != nil {
			return nil, err
		}
		f = &FMPHFunction{f: ff}
	case PtrHashFast, PtrHashCompact:
		pf, err := ptrhash.Decode(r, h)
		if err != nil {
			return nil, err
		}
		f = &PtrHashFunction{f: pf}
	default:
		return nil, fmt.Errorf("%w: %w: %d", mphferrors.ErrCorruptedIndex, mphferrors.ErrUnknownAlgorithm, algo)
	}

	if f.Algorithm() != algo {
		return nil, fmt.Errorf("%w: header says %s, body holds %s", mphferrors.ErrCorruptedIndex, algo, f.Algorithm())
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing body bytes", mphferrors.ErrCorruptedIndex, r.Remaining())
	}
	return f, nil
}
