// corruption_context_test.go tests failure modes of persisted functions:
// byte-level tampering with the header, body, and footer, and truncation.
// Every case starts from a valid encoding and must be rejected with a
// specific error rather than yield a function that reads out of bounds.
package mphf

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
)

// ============================================================================
// Corruption Detection
// ============================================================================

func TestCorruptionDetection(t *testing.T) {
	keys := generateRandomKeys(newTestRNG(t), 1000, 16)

	for _, algo := range Algorithms {
		t.Run(algo.String(), func(t *testing.T) {
			valid, err := Marshal(mustBuild(t, keys, algo))
			require.NoError(t, err)
			bodyLen := len(valid) - minFileSize

			tests := []struct {
				name    string
				corrupt func(data []byte) []byte
				want    error
			}{
				{"header_magic", func(d []byte) []byte { d[0] ^= 0xFF; return d }, mphferrors.ErrInvalidMagic},
				{"header_version", func(d []byte) []byte { d[4]++; return d }, mphferrors.ErrInvalidVersion},
				{"header_algorithm_unknown", func(d []byte) []byte {
					binary.LittleEndian.PutUint16(d[6:], 99)
					return d
				}, mphferrors.ErrCorruptedIndex},
				{"header_algorithm_swapped", func(d []byte) []byte { d[6] ^= 1; return d }, mphferrors.ErrCorruptedIndex},
				{"header_hasher", func(d []byte) []byte { d[8] = 77; return d }, mphferrors.ErrCorruptedIndex},
				{"header_num_keys", func(d []byte) []byte { d[16]++; return d }, mphferrors.ErrCorruptedIndex},
				{"header_seed", func(d []byte) []byte { d[24] ^= 1; return d }, mphferrors.ErrCorruptedIndex},
				{"header_body_length_long", func(d []byte) []byte {
					binary.LittleEndian.PutUint64(d[32:], uint64(bodyLen+1))
					return d
				}, mphferrors.ErrTruncatedFile},
				{"header_body_length_short", func(d []byte) []byte {
					binary.LittleEndian.PutUint64(d[32:], uint64(bodyLen-1))
					return d
				}, mphferrors.ErrCorruptedIndex},
				{"body_first_byte", func(d []byte) []byte { d[headerSize] ^= 0x01; return d }, mphferrors.ErrChecksumFailed},
				{"body_middle", func(d []byte) []byte { d[headerSize+bodyLen/2] ^= 0x80; return d }, mphferrors.ErrChecksumFailed},
				{"footer", func(d []byte) []byte { d[len(d)-1] ^= 0xFF; return d }, mphferrors.ErrChecksumFailed},
				{"trailing_byte", func(d []byte) []byte { return append(d, 0) }, mphferrors.ErrCorruptedIndex},
				{"truncated_footer", func(d []byte) []byte { return d[:len(d)-1] }, mphferrors.ErrTruncatedFile},
				{"truncated_body", func(d []byte) []byte { return d[:headerSize+bodyLen/2] }, mphferrors.ErrTruncatedFile},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					data := tt.corrupt(append([]byte(nil), valid...))
					_, err := OpenBytes(data)
					require.ErrorIs(t, err, tt.want)
				})
			}
		})
	}
}

// TestCorruptFileOnDisk checks that Open reports the same errors as
// OpenBytes for a tampered file.
func TestCorruptFileOnDisk(t *testing.T) {
	keys := generateRandomKeys(newTestRNG(t), 2000, 16)
	valid, err := Marshal(mustBuild(t, keys, PtrHashCompact))
	require.NoError(t, err)

	dir := t.TempDir()
	for _, off := range []int{headerSize, headerSize + 17, len(valid) / 2, len(valid) - footerSize} {
		corrupted := append([]byte(nil), valid...)
		corrupted[off] ^= 0xFF
		path := filepath.Join(dir, "corrupt.mphf")
		require.NoError(t, os.WriteFile(path, corrupted, 0o644))

		_, err := Open(path)
		require.ErrorIs(t, err, mphferrors.ErrChecksumFailed, "offset %d", off)
	}
}

// TestCorruptBodyWithValidChecksum rewrites a body field and recomputes the
// footer, so only the structural checks stand between the tampered body and
// a query.
func TestCorruptBodyWithValidChecksum(t *testing.T) {
	keys := generateRandomKeys(newTestRNG(t), 3000, 16)
	for _, algo := range Algorithms {
		f := mustBuild(t, keys, algo)
		hdr, body, err := encodeBody(f)
		require.NoError(t, err)

		// Both families start their body with n; bump it in the header too
		// so only the body's own checks can catch it.
		binary.LittleEndian.PutUint64(body[0:], f.Len()+1)
		hdr.NumKeys = f.Len() + 1

		data := make([]byte, headerSize+len(body)+footerSize)
		writeFramed(data, &hdr, body)
		_, err = OpenBytes(data)
		require.ErrorIs(t, err, mphferrors.ErrCorruptedIndex, algo)
	}
}
