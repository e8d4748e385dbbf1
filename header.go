package mphf

import (
	"encoding/binary"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
)

const (
	// magic number for persisted functions: "MPHF" in little-endian
	magic = uint32(0x4648504D)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (64 bytes)
	headerSize = 64

	// footerSize is the exact size of the serialized footer (8 bytes)
	footerSize = 8

	// minFileSize is the smallest possible file: header, empty body, footer.
	minFileSize = headerSize + footerSize
)

// header is the 64-byte file header.
//
// Layout:
//
//	Offset  Size  Field       Type
//	0       4     Magic       0x4648504D ("MPHF")
//	4       2     Version     0x0001
//	6       2     Algorithm   uint16_le (0=FMPH, 1=FMPH-GO, 2=PtrHash-fast, 3=PtrHash-compact)
//	8       1     Hasher      uint8 (0=XXH3, 1=XXH64, 2=Murmur3)
//	9       7     Reserved    [7]byte (zero)
//	16      8     NumKeys     uint64_le
//	24      8     Seed        uint64_le (key hash seed)
//	32      8     BodyLength  uint64_le
//	40      24    Reserved    [24]byte (zero)
//
// The body holds the algorithm's own encoding and repeats NumKeys and Seed;
// decoding checks that both copies agree.
type header struct {
	Magic      uint32     // 4 bytes: magic number 0x4648504D
	Version    uint16     // 2 bytes: format version
	Algorithm  Algorithm  // 2 bytes
	Hasher     HasherKind // 1 byte
	NumKeys    uint64     // 8 bytes
	Seed       uint64     // 8 bytes
	BodyLength uint64     // 8 bytes: bytes between header and footer
}

// encodeTo serializes the header to an existing buffer. Reserved bytes are
// zeroed.
func (h *header) encodeTo(buf []byte) {
	clear(buf[:headerSize])
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(h.Algorithm))
	buf[8] = uint8(h.Hasher)
	binary.LittleEndian.PutUint64(buf[16:24], h.NumKeys)
	binary.LittleEndian.PutUint64(buf[24:32], h.Seed)
	binary.LittleEndian.PutUint64(buf[32:40], h.BodyLength)
}

// decodeHeader parses a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, mphferrors.ErrTruncatedFile
	}

	h := &header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint16(buf[4:6]),
		Algorithm:  Algorithm(binary.LittleEndian.Uint16(buf[6:8])),
		Hasher:     HasherKind(buf[8]),
		NumKeys:    binary.LittleEndian.Uint64(buf[16:24]),
		Seed:       binary.LittleEndian.Uint64(buf[24:32]),
		BodyLength: binary.LittleEndian.Uint64(buf[32:40]),
	}

	if h.Magic != magic {
		return nil, mphferrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, mphferrors.ErrInvalidVersion
	}
	return h, nil
}

// footer is the 8-byte file footer: the xxHash64 of the body.
type footer struct {
	BodyHash uint64
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.BodyHash)
}

// decodeFooter parses an 8-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, mphferrors.ErrTruncatedFile
	}
	return &footer{BodyHash: binary.LittleEndian.Uint64(buf[0:8])}, nil
}
