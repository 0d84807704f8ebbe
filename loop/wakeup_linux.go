//go:build linux

package loop

import "golang.org/x/sys/unix"

// createWakeFD creates an eventfd for wake-up notifications, grounded on
// the teacher's wakeup_linux.go createWakeFd. Linux eventfd is both the
// read and write end.
func createWakeFD() (readFD, writeFD int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}

func writeWake(writeFD int) {
	var buf [8]byte
	buf[0] = 1
	unix.Write(writeFD, buf[:])
}

func drainWake(readFD int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(readFD, buf[:]); err != nil {
			return
		}
	}
}
