//go:build !linux && !darwin

package mphf

import "os"

// fallocateFile sizes an output file to hold header, body and footer. No
// blocks are reserved on these platforms.
func fallocateFile(file *os.File, size int64) error {
	return file.Truncate(size)
}
