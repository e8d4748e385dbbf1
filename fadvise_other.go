//go:build !linux

package mphf

// fadviseSequential does nothing where FADV_SEQUENTIAL is unavailable.
func fadviseSequential(fd int, offset, length int64) {}
