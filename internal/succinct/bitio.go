package succinct

// =============================================================================
// Word-packed bit writer
// =============================================================================

// bitWriter appends fixed-width fields LSB-first into 64-bit words.
type bitWriter struct {
	words   []uint64
	current uint64
	bitPos  int
}

func newBitWriter(capacityBits int) *bitWriter {
	return &bitWriter{
		words: make([]uint64, 0, (capacityBits+63)/64),
	}
}

func (bw *bitWriter) flushWord() {
	bw.words = append(bw.words, bw.current)
	bw.current = 0
	bw.bitPos = 0
}

// writeBits appends the low n bits of v (n <= 64).
func (bw *bitWriter) writeBits(v uint64, n int) {
	if n == 0 {
		return
	}
	if n < 64 {
		v &= (uint64(1) << n) - 1
	}

	if bw.bitPos+n <= 64 {
		bw.current |= v << bw.bitPos
		bw.bitPos += n
		if bw.bitPos == 64 {
			bw.flushWord()
		}
		return
	}

	bitsInCurrent := 64 - bw.bitPos
	bw.current |= v << bw.bitPos
	bw.flushWord()
	bw.current = v >> bitsInCurrent
	bw.bitPos = n - bitsInCurrent
}

// finish flushes the partial word and returns the packed words.
func (bw *bitWriter) finish() []uint64 {
	if bw.bitPos > 0 {
		bw.flushWord()
	}
	return bw.words
}

// readBits extracts n bits (n < 64) starting at bit position pos.
func readBits(words []uint64, pos uint64, n uint) uint64 {
	if n == 0 {
		return 0
	}
	w := pos >> 6
	off := pos & 63
	v := words[w] >> off
	if off+uint64(n) > 64 {
		v |= words[w+1] << (64 - off)
	}
	return v & (uint64(1)<<n - 1)
}
