package poller

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by operations on a closed poller.
var ErrClosed = errors.New("poller: closed")

// ErrNotRegistered is returned when operating on an fd that was never
// registered, or was already unregistered.
var ErrNotRegistered = errors.New("poller: fd not registered")

// selectPoller is the portable readiness-scan variant, grounded on the
// original's select-based fallback. Poll builds a read and a write fd-set
// and the highest armed fd from the table, delegates to unix.Select, then
// re-scans the table for matches. Because the fd-set is retested on every
// call, level-triggered semantics fall out without extra work.
type selectPoller struct {
	mu     sync.Mutex
	table  map[int]*entry
	maxFD  int
	closed bool
}

// NewSelect constructs a select(2)-backed Poller.
func NewSelect() Poller {
	return &selectPoller{table: make(map[int]*entry)}
}

func (p *selectPoller) Register(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if _, ok := p.table[fd]; ok {
		return nil
	}
	p.table[fd] = &entry{}
	if fd > p.maxFD {
		p.maxFD = fd
	}
	return nil
}

func (p *selectPoller) Unregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.table, fd)
	return nil
}

func (p *selectPoller) Arm(fd int, dir Direction, cont Continuation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	e, ok := p.table[fd]
	if !ok {
		return ErrNotRegistered
	}
	if dir == Write {
		e.write = cont
		e.mask |= maskWrite
	} else {
		e.read = cont
		e.mask |= maskRead
	}
	return nil
}

func (p *selectPoller) Disarm(fd int, dir Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.table[fd]
	if !ok {
		return nil
	}
	if dir == Write {
		e.write = nil
		e.mask &^= maskWrite
	} else {
		e.read = nil
		e.mask &^= maskRead
	}
	return nil
}

func (p *selectPoller) Poll(timeoutMillis int) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	var rfds, wfds unix.FdSet
	maxFD := -1
	for fd, e := range p.table {
		if e.mask&maskRead != 0 {
			fdSet(&rfds, fd)
			if fd > maxFD {
				maxFD = fd
			}
		}
		if e.mask&maskWrite != 0 {
			fdSet(&wfds, fd)
			if fd > maxFD {
				maxFD = fd
			}
		}
	}
	p.mu.Unlock()

	var tv *unix.Timeval
	if timeoutMillis >= 0 {
		t := unix.NsecToTimeval(int64(timeoutMillis) * int64(1e6))
		tv = &t
	}

	if maxFD < 0 {
		// Nothing armed; block on an empty select so callers relying on a
		// timed wakeup (e.g. to re-check a stop flag) still get one instead
		// of busy-spinning. unix.Select accepts nil fd-sets and an nfds of
		// 0 when there is nothing to watch, and still honors tv.
		_, err := unix.Select(0, nil, nil, nil, tv)
		if err != nil && !errors.Is(err, unix.EINTR) {
			return 0, err
		}
		return 0, nil
	}

	n, err := unix.Select(maxFD+1, &rfds, &wfds, nil, tv)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}

	p.mu.Lock()
	var ready []Continuation
	for fd, e := range p.table {
		if e.mask&maskRead != 0 && fdIsSet(&rfds, fd) {
			ready = append(ready, e.read)
			e.read = nil
			e.mask &^= maskRead
		}
		if e.mask&maskWrite != 0 && fdIsSet(&wfds, fd) {
			ready = append(ready, e.write)
			e.write = nil
			e.mask &^= maskWrite
		}
	}
	p.mu.Unlock()

	for _, cont := range ready {
		if cont != nil {
			cont()
		}
	}
	return len(ready), nil
}

func (p *selectPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.table = nil
	return nil
}
