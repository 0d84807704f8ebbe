//go:build darwin

package asyncfile

import "golang.org/x/sys/unix"

func setReusePort(fd int) {
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}
