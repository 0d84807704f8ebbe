// Package timer implements the deadline-driven timer service: a min-heap
// of deadlines sharing a single kernel timer-fd, registered with a
// poller.Poller, exposing cancellable sleep and deadline-run primitives.
package timer

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/kestrelio/coro/corolog"
	"github.com/kestrelio/coro/coroerr"
	"github.com/kestrelio/coro/poller"
	"github.com/kestrelio/coro/task"
	"golang.org/x/sys/unix"
)

// entry is one pending deadline. Cancelled entries are tombstoned lazily
// and reaped by the driver once they reach the top of the heap.
type entry struct {
	deadline time.Time
	id       uint64
	seq      uint64 // insertion order, for stable tie-break on equal deadlines
	done     chan struct{}
	index    int
}

type minHeap []*entry

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h minHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *minHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Service is the timer-fd-backed deadline queue for one event loop.
// SleepUntil, SleepFor, DelayRun and Cancel may be called from any
// goroutine: the heap and the cancellation set are guarded by a mutex.
type Service struct {
	poller poller.Poller
	log    corolog.Logger
	fd     int

	mu        sync.Mutex
	heap      minHeap
	nextID    uint64
	nextSeq   uint64
	cancelled map[uint64]struct{}
}

// New creates a timer-fd, registers it with p, and returns a ready-to-use
// Service. The driver's read continuation is armed on the timer-fd here,
// before New returns; the fd itself stays open until Close.
func New(p poller.Poller, log corolog.Logger) (*Service, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, coroerr.NewSetupError("timerfd_create", err)
	}
	if log == nil {
		log = corolog.NoOp{}
	}
	if err := p.Register(fd); err != nil {
		unix.Close(fd)
		return nil, coroerr.NewSetupError("timerfd_register", err)
	}
	s := &Service{
		poller:    p,
		log:       log,
		fd:        fd,
		cancelled: make(map[uint64]struct{}),
	}
	s.armReadContinuation()
	return s, nil
}

// Close unregisters and closes the timer-fd.
func (s *Service) Close() error {
	s.poller.Unregister(s.fd)
	return unix.Close(s.fd)
}

// SleepUntil blocks the calling goroutine until deadline arrives or ctx is
// cancelled, in which case it cleans up its heap entry (adds it to the
// cancellation set) before returning ctx.Err().
func (s *Service) SleepUntil(ctx context.Context, deadline time.Time) error {
	e := &entry{deadline: deadline, done: make(chan struct{})}
	s.mu.Lock()
	s.nextID++
	e.id = s.nextID
	s.nextSeq++
	e.seq = s.nextSeq
	heap.Push(&s.heap, e)
	isEarliest := s.heap[0] == e
	s.mu.Unlock()

	if isEarliest {
		s.rearm(deadline)
	}

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		s.Cancel(e.id)
		return ctx.Err()
	}
}

// SleepFor is SleepUntil(ctx, time.Now().Add(d)).
func (s *Service) SleepFor(ctx context.Context, d time.Duration) error {
	return s.SleepUntil(ctx, time.Now().Add(d))
}

// DelayRun returns a task.Task that sleeps for d then invokes fn, run
// fire-and-forget.
func (s *Service) DelayRun(d time.Duration, fn func()) *task.Task[struct{}] {
	t := task.NewTask(func(ctx context.Context) (struct{}, error) {
		if err := s.SleepFor(ctx, d); err != nil {
			return struct{}{}, err
		}
		fn()
		return struct{}{}, nil
	})
	t.Run()
	return t
}

// Cancel adds id to the cancellation set. Safe to call concurrently; the
// driver consults the set before firing, so a cancelled entry never
// double-fires.
func (s *Service) Cancel(id uint64) {
	s.mu.Lock()
	s.cancelled[id] = struct{}{}
	s.mu.Unlock()
}

// armReadContinuation installs the driver's readiness callback. The
// poller disarms a continuation when it delivers it, so the callback
// drains the expiry counter with one read and then re-arms itself.
func (s *Service) armReadContinuation() {
	var cont func()
	cont = func() {
		var buf [8]byte
		unix.Read(s.fd, buf[:])
		s.drainExpired()
		if err := s.poller.Arm(s.fd, poller.Read, cont); err != nil {
			corolog.Error(s.log, "timer", "failed to re-arm timer-fd", err, nil)
		}
	}
	if err := s.poller.Arm(s.fd, poller.Read, cont); err != nil {
		corolog.Error(s.log, "timer", "failed to arm timer-fd", err, nil)
	}
}

// drainExpired pops every entry whose deadline has passed, resuming
// (closing done) the non-cancelled ones, then re-arms the kernel timer to
// the new earliest non-cancelled deadline.
func (s *Service) drainExpired() {
	now := time.Now()
	var fired []*entry

	s.mu.Lock()
	for len(s.heap) > 0 && !s.heap[0].deadline.After(now) {
		e := heap.Pop(&s.heap).(*entry)
		if _, cancelled := s.cancelled[e.id]; cancelled {
			delete(s.cancelled, e.id)
			continue
		}
		fired = append(fired, e)
	}
	// Reap cancelled tombstones that now sit at the top, so the re-arm
	// below targets the earliest non-cancelled deadline.
	for len(s.heap) > 0 {
		if _, cancelled := s.cancelled[s.heap[0].id]; !cancelled {
			break
		}
		e := heap.Pop(&s.heap).(*entry)
		delete(s.cancelled, e.id)
	}
	var nextDeadline time.Time
	hasNext := len(s.heap) > 0
	if hasNext {
		nextDeadline = s.heap[0].deadline
	}
	s.mu.Unlock()

	for _, e := range fired {
		close(e.done)
	}

	if hasNext {
		s.rearm(nextDeadline)
	}
}

// rearm sets the kernel timer-fd to fire at deadline. If deadline has
// already passed, it is armed with the smallest positive interval the
// kernel accepts (1ns) so the driver wakes promptly rather than the timer
// going disarmed, per the edge case in the data model.
func (s *Service) rearm(deadline time.Time) {
	interval := time.Until(deadline)
	if interval <= 0 {
		interval = time.Nanosecond
	}
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(interval.Nanoseconds()),
	}
	if spec.Value.Sec == 0 && spec.Value.Nsec == 0 {
		spec.Value.Nsec = 1
	}
	if err := unix.TimerfdSettime(s.fd, 0, &spec, nil); err != nil {
		corolog.Error(s.log, "timer", "timerfd_settime failed", err, nil)
	}
}
