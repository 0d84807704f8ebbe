// Command httpserver is a minimal demo binary wiring loop + asyncfile +
// httprouter + httpserver into a working HTTP/1.1 server. With
// -workers > 1 it runs one Loop per worker, each with its own listening
// socket bound to the same address: asyncfile.Bind always sets
// SO_REUSEPORT, so the kernel load-balances accepted connections across
// workers without any userspace fan-out queue.
package main

import (
	"context"
	"flag"
	"log"
	"sync"

	"github.com/kestrelio/coro/asyncfile"
	"github.com/kestrelio/coro/corolog"
	"github.com/kestrelio/coro/http1"
	"github.com/kestrelio/coro/httprouter"
	"github.com/kestrelio/coro/httpserver"
	"github.com/kestrelio/coro/loop"
	"github.com/kestrelio/coro/task"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "address to listen on")
	workers := flag.Int("workers", 1, "number of loop+listener workers sharing the address via SO_REUSEPORT")
	jsonLog := flag.Bool("json", false, "emit JSON logs instead of pretty text")
	flag.Parse()

	logger := corolog.New(corolog.WithJSON(*jsonLog))
	router := buildRouter()

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(id, *addr, router, logger)
		}(i)
	}
	wg.Wait()
}

func buildRouter() *httprouter.Router {
	router := httprouter.New()
	router.Register("GET", "/", func(ctx context.Context, req *http1.Request) *task.Task[*http1.Response] {
		return task.NewTask(func(context.Context) (*http1.Response, error) {
			return http1.NewResponse(200, "text/plain", []byte("ok")), nil
		})
	})
	router.Register("GET", "/echo", func(ctx context.Context, req *http1.Request) *task.Task[*http1.Response] {
		return task.NewTask(func(context.Context) (*http1.Response, error) {
			return http1.NewResponse(200, "application/octet-stream", req.Body), nil
		})
	})
	return router
}

func runWorker(id int, addr string, router *httprouter.Router, logger corolog.Logger) {
	l, err := loop.New(loop.WithLogger(logger), loop.WithMetrics(true))
	if err != nil {
		log.Fatalf("httpserver: worker %d: create loop: %v", id, err)
	}
	defer l.Close()

	listener, err := asyncfile.Bind(l.Poller(), "tcp4", addr)
	if err != nil {
		log.Fatalf("httpserver: worker %d: bind %s: %v", id, addr, err)
	}
	defer listener.Close()
	corolog.Info(logger, "httpserver", "worker listening", map[string]any{"worker": id, "addr": listener.LocalAddr()})

	srv := httpserver.New(router, logger)
	ctx := context.Background()
	task.NewTask(func(ctx context.Context) (struct{}, error) {
		return struct{}{}, srv.Serve(ctx, listener)
	}).RunLogged(logger)

	if err := l.Run(ctx); err != nil {
		corolog.Error(logger, "httpserver", "loop exited", err, map[string]any{"worker": id})
	}
}
