// Package httprouter implements the request router: an adaptive radix
// tree keyed on method-and-path tokens, grounded on the original's
// http_router.hpp and spec §6 ("Router... uses the ART as its only
// storage primitive"). It deliberately carries no segment/wildcard
// matching beyond exact path equality — parameterized routes are out of
// scope, since the ART's value here is prefix-shared storage and
// lexicographic iteration, not a full routing DSL.
package httprouter

import (
	"context"
	"strings"

	"github.com/kestrelio/coro/art"
	"github.com/kestrelio/coro/http1"
	"github.com/kestrelio/coro/task"
)

// Handler answers one request, returning a Task so it composes with the
// rest of the runtime's await discipline instead of running inline.
type Handler func(ctx context.Context, req *http1.Request) *task.Task[*http1.Response]

// Router is an exact-match, method-aware request dispatcher backed by a
// single art.Tree[Handler]. Not safe for concurrent Register calls once
// Dispatch is in use from another goroutine — callers register all
// routes up front, mirroring the original's build-then-serve lifecycle.
type Router struct {
	tree *art.Tree[Handler]
}

// New returns an empty Router.
func New() *Router {
	return &Router{tree: art.New[Handler]()}
}

// Register installs handler for method+path, overwriting any existing
// registration for the same pair.
func (r *Router) Register(method, path string, handler Handler) {
	r.tree.Insert(routeKey(method, path), handler)
}

// Lookup returns the handler registered for method+path, and whether one
// was found.
func (r *Router) Lookup(method, path string) (Handler, bool) {
	return r.tree.Find(routeKey(method, path))
}

// Dispatch routes req to its registered handler, or synthesizes a 404
// (no route for the path under any method) or 405 (path registered, but
// not for this method) response — the distinction requires a second
// pass over the registered routes (pathKnown), which is cheap relative
// to the I/O this sits behind.
func (r *Router) Dispatch(ctx context.Context, req *http1.Request) *task.Task[*http1.Response] {
	if h, ok := r.Lookup(req.Method, req.Path); ok {
		return h(ctx, req)
	}
	if r.pathKnown(req.Path) {
		return task.NewTask(func(context.Context) (*http1.Response, error) {
			return http1.NewResponse(405, "", []byte("method not allowed")), nil
		})
	}
	return task.NewTask(func(context.Context) (*http1.Response, error) {
		return http1.NewResponse(404, "", []byte("not found")), nil
	})
}

// pathKnown reports whether path is registered under any method, by
// scanning the tree's lexicographic iteration for a "<method> <path>"
// key whose path component matches. Route counts in a real service are
// small enough that this linear scan, done only on the already-rare
// 404/405 path, is preferable to a second index.
func (r *Router) pathKnown(path string) bool {
	it := r.tree.Iterator()
	for {
		key, _, ok := it.Next()
		if !ok {
			return false
		}
		_, keyPath, found := strings.Cut(key, " ")
		if found && keyPath == path {
			return true
		}
	}
}

func routeKey(method, path string) string {
	return method + " " + path
}
