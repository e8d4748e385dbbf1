//go:build linux

package mphf

import "golang.org/x/sys/unix"

// madvPopulateWrite is MADV_POPULATE_WRITE (Linux 5.14+). Older kernels
// reject it with EINVAL.
const madvPopulateWrite = 23

// prefaultRegion populates the writable mapping of an output file before the
// header, body and footer are copied in, so the copy does not fault page by
// page. Errors are ignored.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}
