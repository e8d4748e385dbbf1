package mphf

import (
	"context"
	"sync"
	"sync/atomic"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
)

// Handle binds a key set to the function built from it.
//
// Lifecycle: NewHandle binds the keys, Construct builds (a second Construct
// replaces the function), Query and Size read it, and Destroy releases the
// keys and the function.
//
// # Thread Safety
//
// Query and Size are lock-free and safe to call concurrently with each
// other and with Construct: a rebuild is published by an atomic swap, so a
// query sees either the old function or the new one. Construct and Destroy
// serialize with each other.
type Handle struct {
	mu        sync.Mutex // Guards keys and destroyed against Construct/Destroy races
	keys      [][]byte
	destroyed bool

	fn atomic.Pointer[builtFunction]
}

type builtFunction struct {
	Function
}

// NewHandle returns a handle bound to a copy of keys.
func NewHandle(keys [][]byte) *Handle {
	owned := make([][]byte, len(keys))
	for i, k := range keys {
		owned[i] = append([]byte(nil), k...)
	}
	return &Handle{keys: owned}
}

// Construct builds a function over the handle's keys and publishes it. On
// error the previous function, if any, stays in place.
func (h *Handle) Construct(ctx context.Context, algo Algorithm, opts ...BuildOption) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return mphferrors.ErrHandleDestroyed
	}
	f, err := Build(ctx, h.keys, algo, opts...)
	if err != nil {
		return err
	}
	h.fn.Store(&builtFunction{f})
	return nil
}

// Query returns the index of key. Before Construct and after Destroy it
// returns 0; the result for a key outside the key set is arbitrary.
func (h *Handle) Query(key []byte) uint64 {
	b := h.fn.Load()
	if b == nil {
		return 0
	}
	return b.Index(key)
}

// Size returns the resident memory of the built function in bytes, or 0
// when there is none.
func (h *Handle) Size() int {
	b := h.fn.Load()
	if b == nil {
		return 0
	}
	return b.SizeBytes()
}

// Function returns the built function, or nil when there is none.
func (h *Handle) Function() Function {
	b := h.fn.Load()
	if b == nil {
		return nil
	}
	return b.Function
}

// Len returns the number of keys bound to the handle.
func (h *Handle) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.keys)
}

// Destroy releases the keys and the function. Later Construct calls return
// ErrHandleDestroyed. Destroy is idempotent.
func (h *Handle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = true
	h.keys = nil
	h.fn.Store(nil)
}
