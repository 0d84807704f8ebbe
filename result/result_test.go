package result

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestOkErr(t *testing.T) {
	ok := Ok(42)
	require.True(t, ok.Ok())
	v, err := ok.Value()
	require.NoError(t, err)
	require.Equal(t, 42, v)

	sentinel := errors.New("boom")
	bad := Err[int](sentinel)
	require.False(t, bad.Ok())
	require.ErrorIs(t, bad.Error(), sentinel)
}

func TestMustPanics(t *testing.T) {
	sentinel := errors.New("boom")
	bad := Err[string](sentinel)
	require.Panics(t, func() { bad.Must() })
}

func TestUnwrapOrLabel(t *testing.T) {
	sentinel := errors.New("boom")
	bad := Err[int](sentinel)
	_, err := bad.UnwrapOr("read")
	require.ErrorContains(t, err, "read")
	require.ErrorIs(t, err, sentinel)
}

func TestIsRetriable(t *testing.T) {
	require.True(t, IsRetriable(unix.EAGAIN))
	require.True(t, IsRetriable(unix.EWOULDBLOCK))
	require.True(t, IsRetriable(unix.EINTR))
	require.True(t, IsRetriable(unix.EINPROGRESS))
	require.False(t, IsRetriable(errors.New("connection reset")))
	require.False(t, IsRetriable(nil))
}
