package httpserver

import (
	"context"
	"testing"
	"time"

	"github.com/kestrelio/coro/asyncfile"
	"github.com/kestrelio/coro/http1"
	"github.com/kestrelio/coro/httprouter"
	"github.com/kestrelio/coro/poller"
	"github.com/kestrelio/coro/task"
	"github.com/stretchr/testify/require"
)

func runPoller(t *testing.T, p poller.Poller) {
	t.Helper()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				p.Poll(10)
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
	})
}

func TestServer_GetRequestRoundTrip(t *testing.T) {
	p := poller.NewSelect()
	defer p.Close()
	runPoller(t, p)

	router := httprouter.New()
	router.Register("GET", "/greet", func(ctx context.Context, req *http1.Request) *task.Task[*http1.Response] {
		return task.NewTask(func(context.Context) (*http1.Response, error) {
			return http1.NewResponse(200, "text/plain", []byte("hi")), nil
		})
	})
	srv := New(router, nil)

	listener, err := asyncfile.Bind(p, "tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	addr := listener.LocalAddr()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go srv.Serve(ctx, listener)

	client, err := asyncfile.Dial(ctx, p, "tcp4", addr).Value()
	require.NoError(t, err)
	defer client.Close()

	req := "GET /greet HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"
	_, err = client.Write(ctx, []byte(req)).Value()
	require.NoError(t, err)

	buf := make([]byte, 0, 256)
	tmp := make([]byte, 64)
	for {
		n, rerr := client.Read(ctx, tmp).Value()
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if rerr != nil || n == 0 {
			break
		}
	}
	out := string(buf)
	require.Contains(t, out, "HTTP/1.1 200 OK")
	require.Contains(t, out, "hi")
}

func TestServer_NotFoundRoute(t *testing.T) {
	p := poller.NewSelect()
	defer p.Close()
	runPoller(t, p)

	router := httprouter.New()
	srv := New(router, nil)

	listener, err := asyncfile.Bind(p, "tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	addr := listener.LocalAddr()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go srv.Serve(ctx, listener)

	client, err := asyncfile.Dial(ctx, p, "tcp4", addr).Value()
	require.NoError(t, err)
	defer client.Close()

	req := "GET /missing HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"
	_, err = client.Write(ctx, []byte(req)).Value()
	require.NoError(t, err)

	buf := make([]byte, 0, 256)
	tmp := make([]byte, 64)
	for {
		n, rerr := client.Read(ctx, tmp).Value()
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if rerr != nil || n == 0 {
			break
		}
	}
	require.Contains(t, string(buf), "HTTP/1.1 404")
}
