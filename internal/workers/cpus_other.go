//go:build !linux

package workers

import "runtime"

// availableCPUs returns runtime.NumCPU. Affinity masks are Linux-specific.
func availableCPUs() int {
	return runtime.NumCPU()
}
