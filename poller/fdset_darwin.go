//go:build darwin

package poller

import "golang.org/x/sys/unix"

// fdSet/fdIsSet implement the FD_SET/FD_ISSET macros. unix.FdSet.Bits is
// [32]int32 on darwin.
func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/32] |= 1 << (uint(fd) % 32)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/32]&(1<<(uint(fd)%32)) != 0
}
