package mphf

import "github.com/stefanfred/MPHF-Experiments/internal/workers"

// SetParallelism sets the process-wide number of construction workers.
//
// It may be called once, before the first Build that relies on the default;
// later calls return ErrParallelismLocked. Without it,
// builds use every CPU available to the process. WithWorkers overrides the
// setting for a single build.
func SetParallelism(n int) error {
	return workers.SetDefault(n)
}

// Parallelism returns the process-wide worker count. Calling it fixes the
// count, as a build would.
func Parallelism() int {
	return workers.Default()
}
