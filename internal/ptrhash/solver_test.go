package ptrhash

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

const testGlobalSeed = uint64(0xA5A5A5A5A5A5A5A5)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

func randomEntries(rng *rand.Rand, n int) []bucketEntry {
	entries := make([]bucketEntry, n)
	for i := range entries {
		entries[i] = bucketEntry{hash: rng.Uint64(), key: uint32(i)}
	}
	return entries
}

func bucketsFor(n int, lambda float64) uint32 {
	return uint32(max(1, math.Ceil(float64(n)/lambda)))
}

// solvePart loads entries as a single part and solves it, retrying like the
// builder does. It returns the pilots and the remap table.
func solvePart(t *testing.T, s *solver, entries []bucketEntry, fn BucketFn, lambda float64) ([]uint8, []uint16) {
	t.Helper()
	numBuckets := bucketsFor(len(entries), lambda)
	s.load(entries, 1, numBuckets, fn)
	pilots := make([]uint8, numBuckets)
	for attempt := range maxPartAttempts {
		s.reset(testGlobalSeed, pilots)
		remap, err := s.solve(partRNG(testGlobalSeed, 0, attempt))
		if err == nil {
			return pilots, slices.Clone(remap)
		}
		t.Logf("attempt %d: %v", attempt, err)
	}
	t.Fatalf("part with %d keys failed after %d attempts", len(entries), maxPartAttempts)
	return nil, nil
}

// checkPart verifies that the pilots and remap table map the entries
// bijectively onto [0, len(entries)).
func checkPart(t *testing.T, entries []bucketEntry, pilots []uint8, remap []uint16, fn BucketFn) {
	t.Helper()
	numKeys := uint32(len(entries))
	numSlots := computeNumSlots(len(entries))
	if len(remap) != int(numSlots-numKeys) {
		t.Fatalf("remap has %d entries, want %d", len(remap), numSlots-numKeys)
	}

	seen := make([]bool, numKeys)
	for _, e := range entries {
		_, rest := route(e.hash, 1)
		b := bucketOf(fn, rest, uint32(len(pilots)))
		slot := pilotSlot(e.hash, pilots[b], testGlobalSeed, numSlots)
		idx := slot
		if slot >= numKeys {
			idx = uint32(remap[slot-numKeys])
		}
		if idx >= numKeys {
			t.Fatalf("key %d: index %d >= %d", e.key, idx, numKeys)
		}
		if seen[idx] {
			t.Fatalf("key %d: index %d assigned twice", e.key, idx)
		}
		seen[idx] = true
	}
}

func TestSolverBijection(t *testing.T) {
	rng := newTestRNG(t)
	for _, tc := range []struct {
		fn     BucketFn
		lambda float64
	}{
		{Linear, lambdaFast},
		{CubicEps, lambdaCompact},
	} {
		for _, n := range []int{1, 2, 3, 10, 100, 1000, 30000} {
			entries := randomEntries(rng, n)
			s := newSolver()
			pilots, remap := solvePart(t, s, entries, tc.fn, tc.lambda)
			checkPart(t, entries, pilots, remap, tc.fn)
		}
	}
}

func TestSolverEmptyPart(t *testing.T) {
	s := newSolver()
	s.load(nil, 1, 4, Linear)
	pilots := []uint8{9, 9, 9, 9}
	s.reset(testGlobalSeed, pilots)
	remap, err := s.solve(partRNG(testGlobalSeed, 0, 0))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(remap) != 0 {
		t.Fatalf("remap = %v, want empty", remap)
	}
	for b, p := range pilots {
		if p != 0 {
			t.Fatalf("pilot[%d] = %d, want 0", b, p)
		}
	}
}

func TestSolverDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	entries := randomEntries(rng, 20000)

	pilotsA, remapA := solvePart(t, newSolver(), entries, CubicEps, lambdaCompact)
	pilotsB, remapB := solvePart(t, newSolver(), entries, CubicEps, lambdaCompact)
	if !slices.Equal(pilotsA, pilotsB) || !slices.Equal(remapA, remapB) {
		t.Fatal("two solves of the same part differ")
	}
}

// TestSolverReuse solves a large part and then a small one with the same
// solver; the small part must come out as with a fresh solver.
func TestSolverReuse(t *testing.T) {
	rng := newTestRNG(t)
	large := randomEntries(rng, 25000)
	small := randomEntries(rng, 3000)

	s := newSolver()
	solvePart(t, s, large, Linear, lambdaFast)
	pilotsReused, remapReused := solvePart(t, s, small, Linear, lambdaFast)
	pilotsFresh, remapFresh := solvePart(t, newSolver(), small, Linear, lambdaFast)

	if !slices.Equal(pilotsReused, pilotsFresh) || !slices.Equal(remapReused, remapFresh) {
		t.Fatal("reused solver produced a different result")
	}
	checkPart(t, small, pilotsReused, remapReused, Linear)
}

func TestSolverHashCollision(t *testing.T) {
	rng := newTestRNG(t)
	entries := randomEntries(rng, 500)
	entries = append(entries, bucketEntry{hash: entries[42].hash, key: 500})

	s := newSolver()
	numBuckets := bucketsFor(len(entries), lambdaFast)
	s.load(entries, 1, numBuckets, Linear)
	s.reset(testGlobalSeed, make([]uint8, numBuckets))
	_, err := s.solve(partRNG(testGlobalSeed, 0, 0))

	var coll *hashCollisionError
	if !errors.As(err, &coll) {
		t.Fatalf("err = %v, want hashCollisionError", err)
	}
	got := []uint32{coll.a, coll.b}
	slices.Sort(got)
	if got[0] != 42 || got[1] != 500 {
		t.Fatalf("collision between keys %v, want [42 500]", got)
	}
}

// TestBuildRemap checks remap targets directly: occupied overflow slots get
// the free slots below numKeys in ascending order, and the table never
// decreases.
func TestBuildRemap(t *testing.T) {
	rng := newTestRNG(t)
	entries := randomEntries(rng, 5000)
	s := newSolver()
	solvePart(t, s, entries, Linear, lambdaFast)

	numKeys := uint32(s.numKeys)
	var holes []uint16
	for slot := uint32(0); slot < numKeys; slot++ {
		if s.slotOwner[slot] == freeSlot {
			holes = append(holes, uint16(slot))
		}
	}
	var targets []uint16
	for slot := numKeys; slot < s.numSlots; slot++ {
		if s.slotOwner[slot] != freeSlot {
			targets = append(targets, s.remap[slot-numKeys])
		}
	}
	if !slices.Equal(holes, targets) {
		t.Fatalf("occupied overflow slots map to %v, holes are %v", targets, holes)
	}
	for i := 1; i < len(s.remap); i++ {
		if s.remap[i] < s.remap[i-1] {
			t.Fatalf("remap decreases at %d: %d < %d", i, s.remap[i], s.remap[i-1])
		}
	}
}

func TestPinRing(t *testing.T) {
	s := newSolver()
	s.load(nil, 1, 100, Linear)
	s.reset(testGlobalSeed, make([]uint8, 100))

	for b := range pinnedSize + 4 {
		s.pin(b)
	}
	for b := range pinnedSize + 4 {
		want := b >= 4
		if got := s.isPinned(b); got != want {
			t.Errorf("isPinned(%d) = %v, want %v", b, got, want)
		}
	}
}

func TestDistinct(t *testing.T) {
	s := newSolver()
	s.load(randomEntries(newTestRNG(t), 100), 1, 40, Linear)
	s.reset(testGlobalSeed, make([]uint8, 40))

	if !s.distinct([]uint32{1, 2, 3, 50}) {
		t.Error("distinct slots reported as repeated")
	}
	if s.distinct([]uint32{7, 8, 7}) {
		t.Error("repeated slot not detected")
	}
	// A fresh check must not see slots from the previous one.
	if !s.distinct([]uint32{7, 8}) {
		t.Error("stale slots leaked into a new check")
	}
}

func BenchmarkSolvePart(b *testing.B) {
	rng := newTestRNG(b)
	for _, tc := range []struct {
		name   string
		fn     BucketFn
		lambda float64
	}{
		{"linear", Linear, lambdaFast},
		{"cubic-eps", CubicEps, lambdaCompact},
	} {
		n := int(tc.lambda * maxBucketsPerPart)
		entries := randomEntries(rng, n)
		numBuckets := bucketsFor(n, tc.lambda)
		pilots := make([]uint8, numBuckets)
		s := newSolver()
		b.Run(tc.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				s.load(entries, 1, numBuckets, tc.fn)
				s.reset(testGlobalSeed, pilots)
				if _, err := s.solve(partRNG(testGlobalSeed, 0, i)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
