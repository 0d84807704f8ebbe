// Package httpserver implements the accept loop and per-connection
// request/response cycle, grounded on the original's http_server.hpp
// (accept-then-spawn-client loop) and http_connection.cpp (read ->
// parse -> dispatch -> write, stopping on error or !keep-alive).
package httpserver

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/kestrelio/coro/asyncfile"
	"github.com/kestrelio/coro/corolog"
	"github.com/kestrelio/coro/http1"
	"github.com/kestrelio/coro/httprouter"
	"github.com/kestrelio/coro/task"
)

// Server accepts connections off a listening AsyncFile and dispatches
// each parsed request to a Router, one connection per fire-and-forget
// Task (the Go substitute for the original's TaskNoSuspend<void> client
// coroutine).
type Server struct {
	router *httprouter.Router
	log    corolog.Logger
}

// New returns a Server that dispatches through router, logging
// non-fatal connection errors through log (corolog.NoOp{} if nil).
func New(router *httprouter.Router, log corolog.Logger) *Server {
	if log == nil {
		log = corolog.NoOp{}
	}
	return &Server{router: router, log: log}
}

// Serve accepts connections from listener until ctx is cancelled or
// Accept returns a non-retriable error, spawning one handler Task per
// accepted connection. It does not itself return until accept fails or
// ctx ends — callers typically run it inside a Task.Run or alongside
// the owning loop.Loop.Run.
func (s *Server) Serve(ctx context.Context, listener *asyncfile.AsyncFile) error {
	for {
		conn, err := listener.Accept(ctx).Value()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		task.NewTask(func(taskCtx context.Context) (struct{}, error) {
			s.handleConnection(ctx, conn)
			return struct{}{}, nil
		}).RunLogged(s.log)
	}
}

// handleConnection runs the read -> parse -> dispatch -> write cycle
// until a parse error, a connection close, a failed write, or a request
// that does not ask for keep-alive ends it, then closes conn. Mirrors the original's
// HttpConnection::handle loop, generalized from a single fixed
// handle_request echo into a dispatch through Router.
func (s *Server) handleConnection(ctx context.Context, conn *asyncfile.AsyncFile) {
	defer conn.Close()

	br := bufio.NewReader(&connReader{ctx: ctx, conn: conn})
	for {
		req, err := http1.ParseRequest(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var pe *http1.ProtocolError
			if errors.As(err, &pe) {
				resp := http1.NewResponse(pe.Status, "", []byte(pe.Message))
				writeResponse(ctx, conn, resp)
			} else {
				corolog.Error(s.log, "httpserver", "connection read failed", err, nil)
			}
			return
		}

		resp, err := s.router.Dispatch(ctx, req).Await(ctx)
		if err != nil {
			corolog.Error(s.log, "httpserver", "handler failed", err, nil)
			resp = http1.NewResponse(500, "", []byte("internal error"))
		}

		if !writeResponse(ctx, conn, resp) {
			return
		}
		if !keepAlive(req) {
			return
		}
	}
}

func writeResponse(ctx context.Context, conn *asyncfile.AsyncFile, resp *http1.Response) bool {
	out := resp.WriteBytes()
	for len(out) > 0 {
		n, err := conn.Write(ctx, out).Value()
		if err != nil {
			return false
		}
		out = out[n:]
	}
	return true
}

func keepAlive(req *http1.Request) bool {
	switch req.HeaderGet("Connection") {
	case "close":
		return false
	case "keep-alive":
		return true
	default:
		return req.Version != "HTTP/1.0"
	}
}

// connReader adapts AsyncFile.Read into io.Reader so bufio.Reader (and
// therefore http1.ParseRequest) can consume it without knowing about
// contexts or result.Result.
type connReader struct {
	ctx  context.Context
	conn *asyncfile.AsyncFile
}

func (r *connReader) Read(buf []byte) (int, error) {
	n, err := r.conn.Read(r.ctx, buf).Value()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
