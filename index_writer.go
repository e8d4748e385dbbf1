package mphf

import (
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
	"github.com/stefanfred/MPHF-Experiments/internal/encoding"
)

// File layout: [Header 64B][Body][Footer 8B]
//
// The body is the algorithm's own encoding; the footer is its xxHash64.

// encodeBody returns the header for f and its body bytes.
func encodeBody(f Function) (header, []byte, error) {
	if f == nil {
		return header{}, nil, fmt.Errorf("%w: nil function", mphferrors.ErrPreconditionViolation)
	}
	w := encoding.NewWriter(nil)
	f.appendTo(w)
	body := w.Bytes()
	return header{
		Magic:      magic,
		Version:    version,
		Algorithm:  f.Algorithm(),
		Hasher:     f.HasherKind(),
		NumKeys:    f.Len(),
		Seed:       f.Seed(),
		BodyLength: uint64(len(body)),
	}, body, nil
}

// writeFramed writes header, body, and footer into dst, which must hold
// exactly headerSize+len(body)+footerSize bytes.
func writeFramed(dst []byte, hdr *header, body []byte) {
	hdr.encodeTo(dst[:headerSize])
	copy(dst[headerSize:], body)
	ftr := footer{BodyHash: xxhash.Sum64(body)}
	ftr.encodeTo(dst[headerSize+len(body):])
}

// Marshal returns the persisted form of f. OpenBytes reads it back.
func Marshal(f Function) ([]byte, error) {
	hdr, body, err := encodeBody(f)
	if err != nil {
		return nil, err
	}
	out := make([]byte, headerSize+len(body)+footerSize)
	writeFramed(out, &hdr, body)
	return out, nil
}

// WriteFile writes the persisted form of f to path, replacing any existing
// file. The file is pre-allocated and written through a memory map.
func WriteFile(path string, f Function) error {
	hdr, body, err := encodeBody(f)
	if err != nil {
		return err
	}
	size := headerSize + len(body) + footerSize

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create function file: %w", err)
	}

	// The mapping below must not extend past the reserved header, body and footer.
	if err := fallocateFile(file, int64(size)); err != nil {
		primaryErr := fmt.Errorf("allocate disk space: %w", err)
		return errors.Join(primaryErr, file.Close())
	}

	mm, err := mmap.MapRegion(file, size, mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("mmap function file: %w", err)
		return errors.Join(primaryErr, file.Close())
	}
	prefaultRegion(mm)

	writeFramed(mm, &hdr, body)

	// Flush before unmapping so the footer is on disk when WriteFile returns.
	if err := mm.Flush(); err != nil {
		primaryErr := fmt.Errorf("mmap flush failed: %w", err)
		return errors.Join(primaryErr, mm.Unmap(), file.Close())
	}
	if err := mm.Unmap(); err != nil {
		primaryErr := fmt.Errorf("mmap unmap failed: %w", err)
		return errors.Join(primaryErr, file.Close())
	}
	return file.Close()
}
