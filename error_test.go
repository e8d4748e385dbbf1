package mphf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
)

// ---------------------------------------------------------------------------
// Category 1: Build option errors
// ---------------------------------------------------------------------------

func TestInvalidFillFactor(t *testing.T) {
	keys := generateRandomKeys(newTestRNG(t), 100, 16)
	for _, pct := range []uint16{0, 101, 1000} {
		for _, algo := range Algorithms {
			_, err := Build(context.Background(), keys, algo, WithFillFactor(pct))
			require.ErrorIs(t, err, mphferrors.ErrInvalidFillFactor, "%s fill %d", algo, pct)
		}
	}
}

func TestFillFactorBounds(t *testing.T) {
	keys := generateRandomKeys(newTestRNG(t), 500, 16)
	for _, pct := range []uint16{1, 100} {
		requireBijective(t, mustBuild(t, keys, FMPH, WithFillFactor(pct)), keys)
	}
}

func TestInvalidWorkers(t *testing.T) {
	_, err := Build(context.Background(), nil, FMPH, WithWorkers(-1))
	require.ErrorIs(t, err, mphferrors.ErrInvalidWorkers)
}

func TestUnknownAlgorithm(t *testing.T) {
	_, err := Build(context.Background(), nil, Algorithm(42))
	require.ErrorIs(t, err, mphferrors.ErrUnknownAlgorithm)

	_, err = ParseAlgorithm("chd")
	require.ErrorIs(t, err, mphferrors.ErrUnknownAlgorithm)

	_, err = AlgorithmFor(Family(9), true)
	require.ErrorIs(t, err, mphferrors.ErrUnknownAlgorithm)
}

func TestUnknownHasher(t *testing.T) {
	_, err := Build(context.Background(), nil, PtrHashFast, WithHasher(HasherKind(200)))
	require.ErrorIs(t, err, mphferrors.ErrUnknownHasher)
}

func TestParseAlgorithmRoundTrip(t *testing.T) {
	for _, algo := range Algorithms {
		got, err := ParseAlgorithm(algo.String())
		require.NoError(t, err)
		assert.Equal(t, algo, got)
	}
}

func TestAlgorithmFor(t *testing.T) {
	tests := []struct {
		family  Family
		compact bool
		want    Algorithm
	}{
		{FamilyFMPH, false, FMPH},
		{FamilyFMPH, true, FMPHGO},
		{FamilyPtrHash, false, PtrHashFast},
		{FamilyPtrHash, true, PtrHashCompact},
	}
	for _, tt := range tests {
		got, err := AlgorithmFor(tt.family, tt.compact)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.family, got.Family())
	}
}

func TestCanceledBuild(t *testing.T) {
	keys := generateRandomKeys(newTestRNG(t), 10_000, 16)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, algo := range Algorithms {
		_, err := Build(ctx, keys, algo)
		require.ErrorIs(t, err, context.Canceled, algo)
	}
}

// ---------------------------------------------------------------------------
// Category 2: Open errors
// ---------------------------------------------------------------------------

func TestOpenNonExistentFilePath(t *testing.T) {
	_, err := Open("/nonexistent/path/to/file.mphf")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mphf")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path)
	require.ErrorIs(t, err, mphferrors.ErrTruncatedFile)
}

func TestOpenBytesTooShort(t *testing.T) {
	for _, n := range []int{0, 1, headerSize, minFileSize - 1} {
		_, err := OpenBytes(make([]byte, n))
		require.ErrorIs(t, err, mphferrors.ErrTruncatedFile, "%d bytes", n)
	}
}
