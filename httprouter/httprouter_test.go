package httprouter

import (
	"context"
	"testing"

	"github.com/kestrelio/coro/http1"
	"github.com/kestrelio/coro/task"
	"github.com/stretchr/testify/require"
)

func ok(body string) Handler {
	return func(ctx context.Context, req *http1.Request) *task.Task[*http1.Response] {
		return task.NewTask(func(context.Context) (*http1.Response, error) {
			return http1.NewResponse(200, "", []byte(body)), nil
		})
	}
}

func TestRouter_DispatchExactMatch(t *testing.T) {
	r := New()
	r.Register("GET", "/users/42", ok("alice"))
	r.Register("GET", "/users/43", ok("bob"))

	req := &http1.Request{Method: "GET", Path: "/users/42"}
	resp, err := r.Dispatch(context.Background(), req).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)
	require.Equal(t, "alice", string(resp.Body))
}

func TestRouter_NotFound(t *testing.T) {
	r := New()
	r.Register("GET", "/users/42", ok("alice"))

	req := &http1.Request{Method: "GET", Path: "/widgets"}
	resp, err := r.Dispatch(context.Background(), req).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 404, resp.Status)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := New()
	r.Register("GET", "/users/42", ok("alice"))

	req := &http1.Request{Method: "POST", Path: "/users/42"}
	resp, err := r.Dispatch(context.Background(), req).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 405, resp.Status)
}

func TestRouter_RegisterOverwrites(t *testing.T) {
	r := New()
	r.Register("GET", "/x", ok("first"))
	r.Register("GET", "/x", ok("second"))

	h, found := r.Lookup("GET", "/x")
	require.True(t, found)
	resp, err := h(context.Background(), &http1.Request{}).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "second", string(resp.Body))
}

func TestRouter_DistinctMethodsSamePath(t *testing.T) {
	r := New()
	r.Register("GET", "/items", ok("list"))
	r.Register("POST", "/items", ok("create"))

	getH, ok1 := r.Lookup("GET", "/items")
	postH, ok2 := r.Lookup("POST", "/items")
	require.True(t, ok1)
	require.True(t, ok2)

	getResp, _ := getH(context.Background(), &http1.Request{}).Await(context.Background())
	postResp, _ := postH(context.Background(), &http1.Request{}).Await(context.Background())
	require.Equal(t, "list", string(getResp.Body))
	require.Equal(t, "create", string(postResp.Body))
}
