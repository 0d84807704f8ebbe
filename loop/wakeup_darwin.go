//go:build darwin

package loop

import "golang.org/x/sys/unix"

// createWakeFD creates a self-pipe for wake-up notifications, grounded on
// the teacher's wakeup_darwin.go self-pipe fallback (no eventfd on
// Darwin). The read end is returned registered-ready (non-blocking); the
// write end is used by Submit to interrupt a blocked Poll.
func createWakeFD() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return -1, -1, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func writeWake(writeFD int) {
	var buf [1]byte
	unix.Write(writeFD, buf[:])
}

func drainWake(readFD int) {
	var buf [64]byte
	for {
		if _, err := unix.Read(readFD, buf[:]); err != nil {
			return
		}
	}
}
