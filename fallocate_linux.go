//go:build linux

package mphf

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile sizes an output file to hold header, body and footer before
// it is mapped for writing. Blocks are reserved up front so that a full disk
// fails here rather than as SIGBUS on a store into the mapping.
func fallocateFile(file *os.File, size int64) error {
	fd := int(file.Fd())
	// Filesystems without fallocate (NFS, tmpfs on old kernels) still get
	// the right size, without the reservation.
	_ = unix.Fallocate(fd, 0, 0, size)
	return unix.Ftruncate(fd, size)
}
