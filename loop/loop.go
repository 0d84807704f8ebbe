// Package loop implements the EventLoop that owns a poller.Poller and a
// timer.Service and drives the poll -> dispatch -> poll cycle until asked
// to stop, adapted from the teacher's loop.go Run/Shutdown/Submit
// structure and state.go's lock-free state machine.
package loop

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/kestrelio/coro/corolog"
	"github.com/kestrelio/coro/coroerr"
	"github.com/kestrelio/coro/poller"
	"github.com/kestrelio/coro/queue"
	"github.com/kestrelio/coro/timer"
	"golang.org/x/sys/unix"
)

// Standard errors, grounded on the teacher's errors.go naming convention.
var (
	ErrAlreadyRunning = errors.New("loop: already running")
	ErrNotRunning     = errors.New("loop: not running")
	ErrTerminated     = errors.New("loop: terminated")
)

// Loop owns a Poller and a timer.Service and drives the event cycle.
// Exactly one goroutine (the one that calls Run) ever touches the
// poller, timer heap, or any ART reachable from submitted work — enforced
// by convention, with IsLoopGoroutine below available for assertions,
// grounded on the teacher's loop.go isLoopThread/getGoroutineID pattern.
type Loop struct {
	poller poller.Poller
	timer  *timer.Service
	log    corolog.Logger

	state *fastState

	wakeReadFD, wakeWriteFD int

	mu      sync.Mutex
	pending queue.ChunkedIngress[func()]

	metrics       *Metrics
	pollTimeoutMs int

	runnerGoroutine int64
}

// New constructs a Loop, resolving opts. On Linux, the default poller is
// epoll(7); elsewhere (or if epoll_create1 fails), the portable
// select(2) fallback is used.
func New(opts ...Option) (*Loop, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	p := cfg.poller
	if p == nil {
		p, err = defaultPoller(cfg.maxEvents)
		if err != nil {
			return nil, coroerr.WrapError("loop: create poller", err)
		}
	}

	ts, err := timer.New(p, cfg.logger)
	if err != nil {
		return nil, coroerr.WrapError("loop: create timer service", err)
	}

	readFD, writeFD, err := createWakeFD()
	if err != nil {
		return nil, coroerr.NewSetupError("create_wake_fd", err)
	}
	if err := p.Register(readFD); err != nil {
		return nil, coroerr.NewSetupError("register_wake_fd", err)
	}

	l := &Loop{
		poller:          p,
		timer:           ts,
		log:             cfg.logger,
		state:           newFastState(),
		wakeReadFD:      readFD,
		wakeWriteFD:     writeFD,
		pollTimeoutMs:   cfg.pollTimeoutMs,
		runnerGoroutine: -1,
	}
	if cfg.metrics {
		l.metrics = &Metrics{}
	}
	return l, nil
}

// Poller exposes the loop's poller for components (asyncfile, timer) that
// need to register against it directly.
func (l *Loop) Poller() poller.Poller { return l.poller }

// Timer exposes the loop's timer.Service.
func (l *Loop) Timer() *timer.Service { return l.timer }

// Metrics returns the loop's opt-in metrics, or nil if WithMetrics(false)
// (the default).
func (l *Loop) Metrics() *Metrics { return l.metrics }

// Submit queues fn to run on the loop goroutine, waking a blocked Poll if
// necessary. Safe to call from any goroutine — this is the only
// thread-safe entry point into the loop's internal queue.ChunkedIngress,
// which is itself not thread-safe on its own (queue.ChunkedIngress's
// documented contract); Submit supplies the external mutex that contract
// requires.
func (l *Loop) Submit(fn func()) error {
	if l.state.Load() == StateTerminated {
		return ErrTerminated
	}
	l.mu.Lock()
	l.pending.Push(fn)
	l.mu.Unlock()
	writeWake(l.wakeWriteFD)
	return nil
}

// Run drives poll -> dispatch -> poll until ctx is cancelled or Shutdown
// is called. Only one Run call may be active at a time.
func (l *Loop) Run(ctx context.Context) error {
	if !l.state.TryTransition(StateAwake, StateRunning) {
		return ErrAlreadyRunning
	}
	l.runnerGoroutine = goroutineID()
	defer l.state.Store(StateTerminated)

	if err := l.poller.Arm(l.wakeReadFD, poller.Read, func() {}); err != nil {
		return coroerr.NewSetupError("arm_wake_fd", err)
	}

	for {
		if l.state.Load() == StateTerminating {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		l.drainPending()

		if l.state.Load() == StateTerminating {
			return nil
		}

		if _, err := l.poller.Poll(l.pollTimeoutMs); err != nil {
			corolog.Error(l.log, "loop", "poll failed", err, nil)
			return err
		}
		l.metrics.recordPoll()

		// The wake fd's continuation is a no-op arm that only exists to
		// unblock Poll; re-arm it and drain any eventfd/pipe bytes so it
		// doesn't spuriously fire again immediately.
		drainWake(l.wakeReadFD)
		if err := l.poller.Arm(l.wakeReadFD, poller.Read, func() {}); err != nil {
			corolog.Error(l.log, "loop", "re-arm wake fd failed", err, nil)
		}

		l.drainPending()
	}
}

// Shutdown requests that Run return after its current iteration. It does
// not block for Run to actually return; callers that need to wait should
// track Run's own returned error (e.g. via a Task).
func (l *Loop) Shutdown() {
	for {
		cur := l.state.Load()
		if cur == StateTerminated || cur == StateTerminating {
			return
		}
		if l.state.TryTransition(cur, StateTerminating) {
			writeWake(l.wakeWriteFD)
			return
		}
	}
}

// Close releases the wake fd, the timer-fd and the poller. Call after Run
// has returned.
func (l *Loop) Close() error {
	l.poller.Unregister(l.wakeReadFD)
	unix.Close(l.wakeReadFD)
	if l.wakeWriteFD != l.wakeReadFD {
		unix.Close(l.wakeWriteFD)
	}
	l.timer.Close()
	return l.poller.Close()
}

func (l *Loop) drainPending() {
	for {
		l.mu.Lock()
		fn, ok := l.pending.Pop()
		l.mu.Unlock()
		if !ok {
			return
		}
		l.metrics.recordTaskRun()
		fn()
	}
}

// IsLoopGoroutine reports whether the calling goroutine is the one
// running Run, for debug assertions in callers that must not touch
// loop-owned state (poller, timer, ART) from another goroutine. Grounded
// on the teacher's loop.go isLoopThread pattern.
func (l *Loop) IsLoopGoroutine() bool {
	return l.runnerGoroutine == goroutineID()
}

func goroutineID() int64 {
	// Debug-aid identification: parses "goroutine N [running]:" out of a
	// small runtime.Stack capture. Called once when Run starts and on each
	// IsLoopGoroutine check, never on the poll/dispatch hot path, matching
	// the teacher's own acknowledgement that this is a debug aid.
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGoroutineID(buf[:n])
}

func parseGoroutineID(b []byte) int64 {
	const prefix = "goroutine "
	if len(b) < len(prefix) {
		return -1
	}
	b = b[len(prefix):]
	var id int64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
