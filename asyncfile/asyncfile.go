// Package asyncfile wraps a non-blocking file descriptor so read, write,
// accept, and connect each become a blocking call that suspends on
// poller.Poller readiness instead of the kernel — the try-then-wait loop
// described in the component design.
package asyncfile

import (
	"context"
	"fmt"

	"github.com/kestrelio/coro/coroerr"
	"github.com/kestrelio/coro/netaddr"
	"github.com/kestrelio/coro/poller"
	"github.com/kestrelio/coro/result"
	"golang.org/x/sys/unix"
)

// AsyncFile owns a non-blocking fd and a reference to the poller it is
// registered with. Close unregisters and closes the fd. Not safe for
// concurrent use from two goroutines on the same direction — ownership is
// conceptual, enforced by convention and documented rather than by the
// type system, mirroring the original's move-only discipline.
type AsyncFile struct {
	fd     int
	poller poller.Poller
}

// New puts fd into non-blocking mode, registers it with p, and wraps it.
// Most callers get an AsyncFile via Bind or Accept instead of calling New
// directly.
func New(fd int, p poller.Poller) (*AsyncFile, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, coroerr.NewSetupError("set_nonblock", err)
	}
	if err := p.Register(fd); err != nil {
		return nil, coroerr.NewSetupError("register", err)
	}
	return &AsyncFile{fd: fd, poller: p}, nil
}

// Fd returns the underlying file descriptor.
func (f *AsyncFile) Fd() int { return f.fd }

// LocalAddr returns the "host:port" string for the fd's bound local
// address, used by demos and tests that Bind to port 0 and need the
// kernel-assigned port back.
func (f *AsyncFile) LocalAddr() string {
	sa, err := unix.Getsockname(f.fd)
	if err != nil {
		return ""
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3], a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%x]:%d", a.Addr, a.Port)
	default:
		return ""
	}
}

// Close unregisters the fd from the poller and closes it.
func (f *AsyncFile) Close() error {
	f.poller.Unregister(f.fd)
	return unix.Close(f.fd)
}

// waitForEvent is the awaiter adapter: it arms cont for fd/dir and blocks
// until it fires or ctx is cancelled, disarming on cancellation — the Go
// substitute for a promise destructor running on coroutine-frame
// teardown.
func waitForEvent(ctx context.Context, p poller.Poller, fd int, dir poller.Direction) error {
	ch := make(chan struct{})
	if err := p.Arm(fd, dir, func() { close(ch) }); err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		p.Disarm(fd, dir)
		return ctx.Err()
	}
}

// Read reads into buf, suspending on read-readiness across retriable
// errors until data, EOF (n==0), or a terminal error is observed.
func (f *AsyncFile) Read(ctx context.Context, buf []byte) result.Result[int] {
	for {
		n, err := unix.Read(f.fd, buf)
		if err == nil {
			return result.Ok(n)
		}
		if result.IsRetriable(err) {
			if werr := waitForEvent(ctx, f.poller, f.fd, poller.Read); werr != nil {
				return result.Err[int](werr)
			}
			continue
		}
		return result.Err[int](err)
	}
}

// Write writes buf, suspending on write-readiness across retriable
// errors.
func (f *AsyncFile) Write(ctx context.Context, buf []byte) result.Result[int] {
	for {
		n, err := unix.Write(f.fd, buf)
		if err == nil {
			return result.Ok(n)
		}
		if result.IsRetriable(err) {
			if werr := waitForEvent(ctx, f.poller, f.fd, poller.Write); werr != nil {
				return result.Err[int](werr)
			}
			continue
		}
		return result.Err[int](err)
	}
}

// Accept accepts one connection from a listening socket, returning a new
// AsyncFile already registered with the same poller.
func (f *AsyncFile) Accept(ctx context.Context) result.Result[*AsyncFile] {
	for {
		nfd, _, err := unix.Accept4(f.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == nil {
			if rerr := f.poller.Register(nfd); rerr != nil {
				unix.Close(nfd)
				return result.Err[*AsyncFile](rerr)
			}
			return result.Ok(&AsyncFile{fd: nfd, poller: f.poller})
		}
		if result.IsRetriable(err) {
			if werr := waitForEvent(ctx, f.poller, f.fd, poller.Read); werr != nil {
				return result.Err[*AsyncFile](werr)
			}
			continue
		}
		return result.Err[*AsyncFile](err)
	}
}

// Connect connects a non-listening socket to addr. The first call
// typically returns EINPROGRESS, so the wait point is productive.
func (f *AsyncFile) Connect(ctx context.Context, addr unix.Sockaddr) result.Result[struct{}] {
	err := unix.Connect(f.fd, addr)
	if err == nil {
		return result.Ok(struct{}{})
	}
	if !result.IsRetriable(err) {
		return result.Err[struct{}](err)
	}
	if werr := waitForEvent(ctx, f.poller, f.fd, poller.Write); werr != nil {
		return result.Err[struct{}](werr)
	}
	// A writable non-blocking connect socket must be checked via
	// SO_ERROR: writability alone doesn't distinguish success from a
	// completed-but-failed connect.
	errno, serr := unix.GetsockoptInt(f.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if serr != nil {
		return result.Err[struct{}](serr)
	}
	if errno != 0 {
		return result.Err[struct{}](unix.Errno(errno))
	}
	return result.Ok(struct{}{})
}

// Bind creates a listening socket for network/addr resolved via
// netaddr.Resolve, with SO_REUSEADDR/SO_REUSEPORT applied, bound, and
// listening with unix.SOMAXCONN backlog. This is the only non-blocking
// operation on AsyncFile — it is synchronous setup, a §7 "resource
// setup" error kind, and occurs before any task is running.
func Bind(p poller.Poller, network, addr string) (*AsyncFile, error) {
	infos, err := netaddr.Resolve(network, addr)
	if err != nil {
		return nil, err
	}
	info := infos[0]

	domain := unix.AF_INET
	if info.Network == "tcp6" {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, coroerr.NewSetupError("socket", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, coroerr.NewSetupError("setsockopt_reuseaddr", err)
	}
	setReusePort(fd)

	if err := unix.Bind(fd, info.Sockaddr); err != nil {
		unix.Close(fd)
		return nil, coroerr.NewSetupError("bind", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, coroerr.NewSetupError("listen", err)
	}
	if err := p.Register(fd); err != nil {
		unix.Close(fd)
		return nil, coroerr.NewSetupError("register", err)
	}
	return &AsyncFile{fd: fd, poller: p}, nil
}

// Dial creates a non-blocking socket and connects it to network/addr,
// suspending on the poller until the connect completes or fails.
func Dial(ctx context.Context, p poller.Poller, network, addr string) result.Result[*AsyncFile] {
	infos, err := netaddr.Resolve(network, addr)
	if err != nil {
		return result.Err[*AsyncFile](err)
	}
	info := infos[0]

	domain := unix.AF_INET
	if info.Network == "tcp6" {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return result.Err[*AsyncFile](coroerr.NewSetupError("socket", err))
	}
	if err := p.Register(fd); err != nil {
		unix.Close(fd)
		return result.Err[*AsyncFile](coroerr.NewSetupError("register", err))
	}
	af := &AsyncFile{fd: fd, poller: p}
	if res := af.Connect(ctx, info.Sockaddr); !res.Ok() {
		af.Close()
		return result.Err[*AsyncFile](res.Error())
	}
	return result.Ok(af)
}
