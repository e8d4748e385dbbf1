package fmph

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
	"github.com/stefanfred/MPHF-Experiments/internal/hasher"
)

// lengthHasher hashes a key to len(key)*seed, so distinct keys of equal
// length collide under every seed. It records the seeds it was called with.
type lengthHasher struct {
	mu    sync.Mutex
	seeds map[uint64]struct{}
}

func newLengthHasher() *lengthHasher {
	return &lengthHasher{seeds: make(map[uint64]struct{})}
}

func (h *lengthHasher) Hash(key []byte, seed uint64) uint64 {
	h.mu.Lock()
	h.seeds[seed] = struct{}{}
	h.mu.Unlock()
	return uint64(len(key)) * seed
}

func (*lengthHasher) Kind() hasher.Kind { return hasher.XXH3 }

func (h *lengthHasher) numSeeds() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seeds)
}

// TestConstructionExhausted builds over two distinct keys that share every
// hash. Each level stalls after maxLevelRetries reseeds, and every global
// attempt runs with a new key hash seed before the build gives up.
func TestConstructionExhausted(t *testing.T) {
	keys := [][]byte{[]byte("ab"), []byte("cd"), []byte("e")}
	for _, grouped := range []bool{false, true} {
		h := newLengthHasher()
		var logs bytes.Buffer
		cfg := testConfig(t, grouped, DefaultFillPercent)
		cfg.Hasher = h
		cfg.Logger = zerolog.New(&logs).Level(zerolog.DebugLevel)

		f, err := Build(context.Background(), keys, cfg)
		if !errors.Is(err, mphferrors.ErrConstructionExhausted) {
			t.Fatalf("grouped=%v: err = %v, want ErrConstructionExhausted", grouped, err)
		}
		if errors.Is(err, mphferrors.ErrDuplicateKey) {
			t.Fatalf("grouped=%v: distinct keys reported as duplicates: %v", grouped, err)
		}
		if f != nil {
			t.Fatalf("grouped=%v: got a function alongside the error", grouped)
		}

		if got := h.numSeeds(); got != maxGlobalRetries {
			t.Errorf("grouped=%v: hashed with %d seeds, want %d", grouped, got, maxGlobalRetries)
		}
		out := logs.String()
		if got := strings.Count(out, "restarting with a new seed"); got != maxGlobalRetries {
			t.Errorf("grouped=%v: %d restarts logged, want %d", grouped, got, maxGlobalRetries)
		}
		if got := strings.Count(out, "level placed no keys"); got < maxLevelRetries*maxGlobalRetries {
			t.Errorf("grouped=%v: %d level reseeds logged, want at least %d",
				grouped, got, maxLevelRetries*maxGlobalRetries)
		}
	}
}

// TestExhaustedDuplicateWins checks that a stalled build over true
// duplicates reports the duplicate rather than plain exhaustion.
func TestExhaustedDuplicateWins(t *testing.T) {
	cfg := testConfig(t, false, DefaultFillPercent)
	cfg.Hasher = newLengthHasher()

	_, err := Build(context.Background(), [][]byte{[]byte("ab"), []byte("ab"), []byte("e")}, cfg)
	if !errors.Is(err, mphferrors.ErrDuplicateKey) || !errors.Is(err, mphferrors.ErrPreconditionViolation) {
		t.Fatalf("err = %v, want ErrPreconditionViolation wrapping ErrDuplicateKey", err)
	}
	if errors.Is(err, mphferrors.ErrConstructionExhausted) {
		t.Fatalf("duplicate reported as exhaustion: %v", err)
	}
}
