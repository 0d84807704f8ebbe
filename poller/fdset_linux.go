//go:build linux

package poller

import "golang.org/x/sys/unix"

// fdSet/fdIsSet implement the FD_SET/FD_ISSET macros. unix.FdSet.Bits is
// [16]int64 on linux.
func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}
