package ptrhash

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// errEvictionLimitExceeded is returned when the solver exceeds the maximum
// allowed evictions for a part. The caller retries the part with a
// differently seeded eviction phase.
var errEvictionLimitExceeded = errors.New("ptrhash solver: eviction limit exceeded")

// errNoPilot is returned when every pilot of a bucket touches a pinned
// bucket or maps two of its keys to the same slot.
var errNoPilot = errors.New("ptrhash solver: no viable pilot")

// hashCollisionError reports two keys of one bucket with identical hashes.
// Every pilot maps them to the same slot, so no pilot assignment exists for
// the current key hash seed.
type hashCollisionError struct {
	a, b uint32 // key indexes
}

func (e *hashCollisionError) Error() string {
	return fmt.Sprintf("ptrhash solver: keys %d and %d have identical hashes", e.a, e.b)
}

// Solver outline:
//  1. Buckets are visited largest first (counting sort by size).
//  2. Phase 1 tries pilots 0..255 and takes the first whose slots are all
//     free and mutually distinct.
//  3. Phase 2, when no free pilot exists, starts at a random pilot and picks
//     the one whose occupied slots have the smallest Σ(owner size)². Owners
//     are evicted onto a max-heap and re-placed before the next bucket.
//  4. The last pinnedSize placed buckets cannot be evicted, which breaks
//     short eviction cycles.
//  5. Evictions are capped at maxEvictionMultiplier × numSlots.

const (
	// pinnedSize is the size of the circular buffer for cycle prevention.
	pinnedSize = 16

	// maxEvictionMultiplier limits total evictions per attempt.
	maxEvictionMultiplier = 10

	bitsPerWord = 64

	// minBufferAlloc is the minimum allocation to amortize overhead.
	minBufferAlloc = 16

	freeSlot = -1
)

// bucketEntry is a key of the part being solved.
type bucketEntry struct {
	hash uint64
	key  uint32 // index into the key set
}

// solver holds the state for solving one part at a time. A solver is reused
// across the parts one worker processes.
type solver struct {
	// Geometry
	numBuckets uint32
	numSlots   uint32
	numKeys    int
	fn         BucketFn
	seed       uint64

	pilotHPs [numPilotValues]uint64

	// Keys of the part grouped by bucket: bucket b owns
	// entries[bucketStarts[b]:bucketStarts[b+1]].
	entries      []bucketEntry
	keyBucket    []uint32
	cursor       []uint32
	bucketStarts []uint32
	bucketOrder  []uint32
	sortCounts   []int

	// Solving state
	pilots    []uint8 // output: pilot per bucket
	slotOwner []int32 // slot -> bucket, or freeSlot
	placed    []bool

	// Distinct-slot check: a slot is seen when stamp[slot] == stampGen.
	stamp    []uint32
	stampGen uint32

	// Eviction tracking
	pinned     [pinnedSize]int32 // circular buffer of recently placed buckets (-1 = empty)
	pinnedBits []uint64
	pinnedIdx  int
	evictions  int

	// evictionBudget is the eviction cap of the current attempt.
	evictionBudget int

	// Reusable buffers
	folded    []uint64
	slots     []uint32
	bestSlots []uint32
	evicted   []int32
	heap      *bucketHeap
	remap     []uint16
}

func newSolver() *solver {
	return &solver{
		folded:    make([]uint64, 0, minBufferAlloc),
		slots:     make([]uint32, 0, minBufferAlloc),
		bestSlots: make([]uint32, 0, minBufferAlloc),
		evicted:   make([]int32, 0, minBufferAlloc),
		heap:      newBucketHeap(minBufferAlloc),
	}
}

// load groups the part's keys by bucket. Keys keep their relative order
// inside a bucket.
func (s *solver) load(keys []bucketEntry, numParts uint64, numBuckets uint32, fn BucketFn) {
	n := len(keys)
	s.numBuckets = numBuckets
	s.numKeys = n
	s.fn = fn

	s.keyBucket = grow(s.keyBucket, n)
	s.bucketStarts = grow(s.bucketStarts, int(numBuckets)+1)
	clear(s.bucketStarts)
	for i, e := range keys {
		_, rest := route(e.hash, numParts)
		b := bucketOf(fn, rest, numBuckets)
		s.keyBucket[i] = b
		s.bucketStarts[b+1]++
	}
	for b := uint32(1); b <= numBuckets; b++ {
		s.bucketStarts[b] += s.bucketStarts[b-1]
	}

	s.entries = grow(s.entries, n)
	s.cursor = grow(s.cursor, int(numBuckets))
	copy(s.cursor, s.bucketStarts[:numBuckets])
	for i, e := range keys {
		b := s.keyBucket[i]
		s.entries[s.cursor[b]] = e
		s.cursor[b]++
	}

	s.bucketOrder = grow(s.bucketOrder, int(numBuckets))
	s.sortCounts = countingSortBuckets(s.bucketStarts, s.bucketOrder, s.sortCounts)
}

// reset prepares one solve attempt for the loaded part. Pilots are written
// into pilotsDst.
func (s *solver) reset(seed uint64, pilotsDst []uint8) {
	s.seed = seed
	s.numSlots = computeNumSlots(s.numKeys)
	s.evictions = 0
	s.evictionBudget = maxEvictionMultiplier * int(s.numSlots)
	s.pinnedIdx = 0

	for p := range s.pilotHPs {
		s.pilotHPs[p] = pilotHash(uint8(p), seed)
	}

	s.pilots = pilotsDst[:s.numBuckets]
	clear(s.pilots)

	s.slotOwner = grow(s.slotOwner, int(s.numSlots))
	for i := range s.slotOwner {
		s.slotOwner[i] = freeSlot
	}
	s.placed = grow(s.placed, int(s.numBuckets))
	clear(s.placed)

	if len(s.stamp) < int(s.numSlots) {
		s.stamp = make([]uint32, s.numSlots)
		s.stampGen = 0
	}

	for i := range s.pinned {
		s.pinned[i] = -1
	}
	s.pinnedBits = grow(s.pinnedBits, int(s.numBuckets+bitsPerWord-1)/bitsPerWord)
	clear(s.pinnedBits)
}

func (s *solver) bucket(idx int) []bucketEntry {
	return s.entries[s.bucketStarts[idx]:s.bucketStarts[idx+1]]
}

func (s *solver) bucketSize(idx int) int {
	return int(s.bucketStarts[idx+1] - s.bucketStarts[idx])
}

func (s *solver) isPinned(bucketIdx int) bool {
	return s.pinnedBits[bucketIdx/bitsPerWord]&(1<<(bucketIdx%bitsPerWord)) != 0
}

// pin adds bucket to the recent placement buffer, unpinning the oldest.
func (s *solver) pin(bucketIdx int) {
	if old := s.pinned[s.pinnedIdx]; old >= 0 {
		s.pinnedBits[int(old)/bitsPerWord] &^= 1 << (int(old) % bitsPerWord)
	}
	s.pinned[s.pinnedIdx] = int32(bucketIdx)
	s.pinnedBits[bucketIdx/bitsPerWord] |= 1 << (bucketIdx % bitsPerWord)
	s.pinnedIdx = (s.pinnedIdx + 1) % pinnedSize
}

// distinct reports whether slots holds no repeated value.
func (s *solver) distinct(slots []uint32) bool {
	s.stampGen++
	if s.stampGen == 0 {
		clear(s.stamp)
		s.stampGen = 1
	}
	gen := s.stampGen
	for _, slot := range slots {
		if s.stamp[slot] == gen {
			return false
		}
		s.stamp[slot] = gen
	}
	return true
}

// solve assigns pilots to all buckets and returns the part's remap table,
// which maps overflow slot numKeys+i to remap[i].
func (s *solver) solve(rng *rand.Rand) ([]uint16, error) {
	if s.numKeys == 0 {
		return nil, nil
	}

	s.heap.clear()

	for _, b := range s.bucketOrder[:s.numBuckets] {
		bucketIdx := int(b)
		if s.placed[bucketIdx] {
			continue
		}
		if s.bucketSize(bucketIdx) == 0 {
			s.placed[bucketIdx] = true
			continue
		}
		if err := s.placeWithEviction(bucketIdx, rng); err != nil {
			return nil, err
		}

		for s.heap.len() > 0 {
			next, _ := s.heap.pop()
			if s.placed[next] {
				continue
			}
			if err := s.placeWithEviction(next, rng); err != nil {
				return nil, err
			}
			if s.evictions > s.evictionBudget {
				return nil, errEvictionLimitExceeded
			}
		}
	}

	return s.buildRemap(), nil
}

// findFreePilot returns the first pilot whose slots are all free and
// distinct, leaving the slots in s.slots.
func (s *solver) findFreePilot() (uint8, bool) {
	numSlots := s.numSlots
	owner := s.slotOwner
	slots := s.slots
	for p := range numPilotValues {
		hp := s.pilotHPs[p]
		free := true
		for i, f := range s.folded {
			slot := pilotSlotFolded(f, hp, numSlots)
			if owner[slot] != freeSlot {
				free = false
				break
			}
			slots[i] = slot
		}
		if free && s.distinct(slots) {
			return uint8(p), true
		}
	}
	return 0, false
}

// placeWithEviction places one bucket, evicting other buckets if needed.
func (s *solver) placeWithEviction(bucketIdx int, rng *rand.Rand) error {
	bucket := s.bucket(bucketIdx)
	size := len(bucket)

	s.folded = grow(s.folded, size)
	for i, e := range bucket {
		s.folded[i] = foldHash(e.hash)
	}
	s.slots = grow(s.slots, size)

	if pilot, ok := s.findFreePilot(); ok {
		s.place(bucketIdx, pilot, s.slots)
		return nil
	}

	// Phase 2: minimal eviction cost. Early exit when the score reaches
	// size², a single collision with an equally sized bucket.
	p0 := rng.IntN(numPilotValues)
	bestPilot := uint8(0)
	bestScore := math.MaxInt
	s.bestSlots = s.bestSlots[:0]
	minPossibleScore := size * size

	slots := s.slots
	for delta := range numPilotValues {
		pilot := uint8((p0 + delta) % numPilotValues)
		hp := s.pilotHPs[pilot]
		for i, f := range s.folded {
			slots[i] = pilotSlotFolded(f, hp, s.numSlots)
		}

		score := 0
		viable := true
		for _, slot := range slots {
			owner := s.slotOwner[slot]
			if owner == freeSlot {
				continue
			}
			if s.isPinned(int(owner)) {
				viable = false
				break
			}
			ownerSize := s.bucketSize(int(owner))
			score += ownerSize * ownerSize
			if score >= bestScore {
				viable = false
				break
			}
		}
		if !viable || !s.distinct(slots) {
			continue
		}

		bestPilot = pilot
		bestScore = score
		s.bestSlots = append(s.bestSlots[:0], slots...)
		if score <= minPossibleScore {
			break
		}
	}

	if len(s.bestSlots) == 0 {
		if a, b, ok := equalHashes(bucket); ok {
			return &hashCollisionError{a: a, b: b}
		}
		return fmt.Errorf("%w: bucket=%d size=%d numSlots=%d", errNoPilot, bucketIdx, size, s.numSlots)
	}

	// Collect distinct owners of the chosen slots.
	s.evicted = s.evicted[:0]
	for _, slot := range s.bestSlots {
		owner := s.slotOwner[slot]
		if owner == freeSlot {
			continue
		}
		seen := false
		for _, e := range s.evicted {
			if e == owner {
				seen = true
				break
			}
		}
		if !seen {
			s.evicted = append(s.evicted, owner)
		}
	}

	for _, owner := range s.evicted {
		s.evict(int(owner))
		s.heap.push(int(owner), s.bucketSize(int(owner)))
		s.evictions++
	}

	s.place(bucketIdx, bestPilot, s.bestSlots)
	s.pin(bucketIdx)
	return nil
}

func (s *solver) place(bucketIdx int, pilot uint8, slots []uint32) {
	s.pilots[bucketIdx] = pilot
	for _, slot := range slots {
		s.slotOwner[slot] = int32(bucketIdx)
	}
	s.placed[bucketIdx] = true
}

// evict frees the slots a bucket still owns and marks it unplaced.
func (s *solver) evict(bucketIdx int) {
	hp := s.pilotHPs[s.pilots[bucketIdx]]
	for _, e := range s.bucket(bucketIdx) {
		slot := pilotSlotFolded(foldHash(e.hash), hp, s.numSlots)
		if s.slotOwner[slot] == int32(bucketIdx) {
			s.slotOwner[slot] = freeSlot
		}
	}
	s.placed[bucketIdx] = false
}

// buildRemap maps every occupied overflow slot, in ascending order, to the
// next free slot below numKeys. Unoccupied overflow slots repeat the
// previous target, so the table is non-decreasing.
func (s *solver) buildRemap() []uint16 {
	numKeys := uint32(s.numKeys)
	s.remap = grow(s.remap, int(s.numSlots-numKeys))

	hole := uint32(0)
	prev := uint16(0)
	for slot := numKeys; slot < s.numSlots; slot++ {
		if s.slotOwner[slot] == freeSlot {
			s.remap[slot-numKeys] = prev
			continue
		}
		for s.slotOwner[hole] != freeSlot {
			hole++
		}
		prev = uint16(hole)
		s.remap[slot-numKeys] = prev
		hole++
	}
	return s.remap
}

// equalHashes returns the key indexes of two entries with the same hash.
func equalHashes(bucket []bucketEntry) (uint32, uint32, bool) {
	for i := range bucket {
		for j := i + 1; j < len(bucket); j++ {
			if bucket[i].hash == bucket[j].hash {
				return bucket[i].key, bucket[j].key, true
			}
		}
	}
	return 0, 0, false
}

// grow returns s resized to n, reallocating only when capacity is short.
// The contents are unspecified.
func grow[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
