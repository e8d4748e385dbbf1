package ptrhash

// bucketHeap is a max-heap of buckets ordered by size, ties broken by
// ascending bucket index.
type bucketHeap struct {
	indices []uint32
	sizes   []uint32
}

func newBucketHeap(capacity int) *bucketHeap {
	return &bucketHeap{
		indices: make([]uint32, 0, capacity),
		sizes:   make([]uint32, 0, capacity),
	}
}

func (h *bucketHeap) clear() {
	h.indices = h.indices[:0]
	h.sizes = h.sizes[:0]
}

func (h *bucketHeap) len() int {
	return len(h.indices)
}

func (h *bucketHeap) push(idx, size int) {
	h.indices = append(h.indices, uint32(idx))
	h.sizes = append(h.sizes, uint32(size))
	h.up(len(h.indices) - 1)
}

func (h *bucketHeap) pop() (int, int) {
	n := len(h.indices) - 1
	h.swap(0, n)
	h.down(0, n)
	idx, size := h.indices[n], h.sizes[n]
	h.indices = h.indices[:n]
	h.sizes = h.sizes[:n]
	return int(idx), int(size)
}

func (h *bucketHeap) swap(i, j int) {
	h.indices[i], h.indices[j] = h.indices[j], h.indices[i]
	h.sizes[i], h.sizes[j] = h.sizes[j], h.sizes[i]
}

func (h *bucketHeap) less(i, j int) bool {
	if h.sizes[i] != h.sizes[j] {
		return h.sizes[i] > h.sizes[j]
	}
	return h.indices[i] < h.indices[j]
}

func (h *bucketHeap) up(j int) {
	for j > 0 {
		i := (j - 1) / 2
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h *bucketHeap) down(i, n int) {
	for {
		j := 2*i + 1
		if j >= n {
			break
		}
		if j2 := j + 1; j2 < n && h.less(j2, j) {
			j = j2
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
}

// countingSortBuckets writes the bucket indices into order, largest bucket
// first and ascending index among equal sizes. bucketStarts holds the
// cumulative key counts (len = numBuckets+1). counts is scratch space and is
// grown as needed; the possibly reallocated slice is returned.
func countingSortBuckets(bucketStarts, order []uint32, counts []int) []int {
	n := len(bucketStarts) - 1
	if n <= 0 {
		return counts
	}

	maxSize := 0
	for i := 0; i < n; i++ {
		maxSize = max(maxSize, int(bucketStarts[i+1]-bucketStarts[i]))
	}
	if cap(counts) < maxSize+1 {
		counts = make([]int, maxSize+1)
	}
	counts = counts[:maxSize+1]
	clear(counts)

	for i := 0; i < n; i++ {
		counts[bucketStarts[i+1]-bucketStarts[i]]++
	}

	// Convert counts to start positions, largest size first.
	pos := 0
	for size := maxSize; size >= 0; size-- {
		c := counts[size]
		counts[size] = pos
		pos += c
	}

	for i := 0; i < n; i++ {
		size := bucketStarts[i+1] - bucketStarts[i]
		order[counts[size]] = uint32(i)
		counts[size]++
	}
	return counts
}
