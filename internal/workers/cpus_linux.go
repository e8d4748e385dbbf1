//go:build linux

package workers

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// availableCPUs returns the number of CPUs in the process affinity mask,
// which is smaller than runtime.NumCPU under taskset or cgroup pinning.
func availableCPUs() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return runtime.NumCPU()
	}
	if n := set.Count(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}
