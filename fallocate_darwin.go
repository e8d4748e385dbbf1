//go:build darwin

package mphf

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile sizes an output file to hold header, body and footer before
// it is mapped for writing. F_PREALLOCATE reserves every block or none, so
// a full disk fails here rather than as SIGBUS on a store into the mapping.
func fallocateFile(file *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  size,
	}
	// Reservation is best-effort; the size must still be set.
	_ = unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst)
	return unix.Ftruncate(int(file.Fd()), size)
}
