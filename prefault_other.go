//go:build !linux

package mphf

// prefaultRegion does nothing where MADV_POPULATE_WRITE is unavailable.
func prefaultRegion(data []byte) {}
