package mphf

import (
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
)

// Open reads a function written by WriteFile.
// It memory-maps the file, verifies the checksum, decodes the function into
// owned memory, and unmaps the file before returning.
func Open(path string) (Function, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open function file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile reads a function from f. The caller is responsible for closing
// f; the returned function does not reference it.
func OpenFile(f *os.File) (Function, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat function file: %w", err)
	}
	fileSize := stat.Size()

	if fileSize < int64(minFileSize) {
		return nil, mphferrors.ErrTruncatedFile
	}

	fadviseSequential(int(f.Fd()), 0, fileSize)
	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap function file: %w", err)
	}

	fn, err := decode(mm)
	if unmapErr := mm.Unmap(); unmapErr != nil {
		return nil, errors.Join(err, fmt.Errorf("mmap unmap failed: %w", unmapErr))
	}
	return fn, err
}

// OpenBytes reads a function from the output of Marshal. The function does
// not reference data afterwards.
func OpenBytes(data []byte) (Function, error) {
	if len(data) < minFileSize {
		return nil, mphferrors.ErrTruncatedFile
	}
	return decode(data)
}

// decode checks the frame around the body and decodes the body. The
// checksum is verified before any body field is trusted.
func decode(data []byte) (Function, error) {
	hdr, err := decodeHeader(data[:headerSize])
	if err != nil {
		return nil, err
	}

	size := uint64(len(data))
	if hdr.BodyLength > size-minFileSize {
		return nil, mphferrors.ErrTruncatedFile
	}
	if hdr.BodyLength < size-minFileSize {
		return nil, fmt.Errorf("%w: %d bytes after footer", mphferrors.ErrCorruptedIndex, size-minFileSize-hdr.BodyLength)
	}
	body := data[headerSize : headerSize+hdr.BodyLength]

	ftr, err := decodeFooter(data[headerSize+hdr.BodyLength:])
	if err != nil {
		return nil, err
	}
	if xxhash.Sum64(body) != ftr.BodyHash {
		return nil, mphferrors.ErrChecksumFailed
	}

	f, err := decodeFunction(hdr.Algorithm, hdr.Hasher, body)
	if err != nil {
		return nil, err
	}
	if f.Len() != hdr.NumKeys || f.Seed() != hdr.Seed {
		return nil, fmt.Errorf("%w: header has %d keys and seed %#x, body has %d and %#x",
			mphferrors.ErrCorruptedIndex, hdr.NumKeys, hdr.Seed, f.Len(), f.Seed())
	}
	return f, nil
}
