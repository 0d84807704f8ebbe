// Command echoserver is a minimal demo binary exercising the loopback
// echo scenario end-to-end: bind, accept, read, write back, repeat per
// connection until the peer closes. Flag parsing is kept to stdlib
// flag, since a CLI framework has no other component to justify it
// for a two-flag demo.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/kestrelio/coro/asyncfile"
	"github.com/kestrelio/coro/corolog"
	"github.com/kestrelio/coro/loop"
	"github.com/kestrelio/coro/task"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "address to listen on")
	jsonLog := flag.Bool("json", false, "emit JSON logs instead of pretty text")
	flag.Parse()

	logger := corolog.New(corolog.WithJSON(*jsonLog))

	l, err := loop.New(loop.WithLogger(logger), loop.WithMetrics(true))
	if err != nil {
		log.Fatalf("echoserver: create loop: %v", err)
	}
	defer l.Close()

	listener, err := asyncfile.Bind(l.Poller(), "tcp4", *addr)
	if err != nil {
		log.Fatalf("echoserver: bind %s: %v", *addr, err)
	}
	defer listener.Close()
	corolog.Info(logger, "echoserver", "listening", map[string]any{"addr": listener.LocalAddr()})

	ctx := context.Background()
	task.NewTask(func(ctx context.Context) (struct{}, error) {
		for {
			conn, err := listener.Accept(ctx).Value()
			if err != nil {
				corolog.Error(logger, "echoserver", "accept failed", err, nil)
				return struct{}{}, err
			}
			task.NewTask(func(ctx context.Context) (struct{}, error) {
				serveEcho(ctx, conn, logger)
				return struct{}{}, nil
			}).Run()
		}
	}).Run()

	if err := l.Run(ctx); err != nil {
		corolog.Error(logger, "echoserver", "loop exited", err, nil)
	}
}

func serveEcho(ctx context.Context, conn *asyncfile.AsyncFile, logger corolog.Logger) {
	defer conn.Close()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(ctx, buf).Value()
		if err != nil || n == 0 {
			return
		}
		for written := 0; written < n; {
			wn, werr := conn.Write(ctx, buf[written:n]).Value()
			if werr != nil {
				corolog.Error(logger, "echoserver", "write failed", werr, nil)
				return
			}
			written += wn
		}
	}
}
