//go:build linux

package mphf

import "golang.org/x/sys/unix"

// fadviseSequential tells the kernel that Open reads the file front to back
// once: header, then the body checksum pass, then the decode pass over the
// same body bytes. Errors are ignored.
func fadviseSequential(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}
