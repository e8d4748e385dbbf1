package main

import (
	"runtime"
	"runtime/metrics"
	"sync/atomic"
	"syscall"
	"time"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// memorySampler tracks peak heap and RSS growth over a phase.
//
// Samples every 10ms through runtime/metrics instead of ReadMemStats, which
// stops the world and distorts construction time.
type memorySampler struct {
	baseHeap uint64
	baseRSS  uint64
	peakHeap atomic.Uint64
	peakRSS  atomic.Uint64
	done     chan struct{}
	stopped  chan struct{}
}

func startMemorySampler() *memorySampler {
	runtime.GC()
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)

	s := &memorySampler{
		baseHeap: baseline.Alloc,
		baseRSS:  getMaxRSS(),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	s.peakHeap.Store(s.baseHeap)
	s.peakRSS.Store(s.baseRSS)

	go func() {
		defer close(s.stopped)
		samples := []metrics.Sample{
			{Name: "/memory/classes/heap/objects:bytes"},
		}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&s.peakHeap, samples[0].Value.Uint64())
				storeMax(&s.peakRSS, getMaxRSS())
			}
		}
	}()
	return s
}

// stop ends sampling and returns the peak heap and RSS growth in bytes.
func (s *memorySampler) stop() (heap, rss uint64) {
	close(s.done)
	<-s.stopped

	var final runtime.MemStats
	runtime.ReadMemStats(&final)
	storeMax(&s.peakHeap, final.Alloc)
	storeMax(&s.peakRSS, getMaxRSS())
	return s.peakHeap.Load() - s.baseHeap, s.peakRSS.Load() - s.baseRSS
}

func storeMax(a *atomic.Uint64, v uint64) {
	for {
		old := a.Load()
		if v <= old || a.CompareAndSwap(old, v) {
			return
		}
	}
}
