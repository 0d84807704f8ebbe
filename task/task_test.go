package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kestrelio/coro/corolog"
	"github.com/stretchr/testify/require"
)

func TestTask_AwaitReturnsValue(t *testing.T) {
	tk := NewTask(func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := tk.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestTask_AwaitPropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	tk := NewTask(func(ctx context.Context) (int, error) {
		return 0, sentinel
	})
	_, err := tk.Await(context.Background())
	require.ErrorIs(t, err, sentinel)
}

func TestTask_AwaitRecoversPanic(t *testing.T) {
	tk := NewTask(func(ctx context.Context) (int, error) {
		panic("kaboom")
	})
	_, err := tk.Await(context.Background())
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "kaboom", pe.Value)
}

func TestTask_BodyDoesNotRunUntilAwaitOrRun(t *testing.T) {
	started := make(chan struct{})
	tk := NewTask(func(ctx context.Context) (int, error) {
		close(started)
		return 1, nil
	})

	select {
	case <-started:
		t.Fatal("task body ran before Await/Run")
	case <-time.After(20 * time.Millisecond):
	}

	tk.Run()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task body never ran after Run")
	}
}

func TestTask_AwaitContextCancelled(t *testing.T) {
	gate := make(chan struct{})
	tk := NewTask(func(ctx context.Context) (int, error) {
		<-gate
		return 0, nil
	})
	defer close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := tk.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTask_RunLoggedLogsPanic(t *testing.T) {
	var logged bool
	log := &captureLogger{onLog: func(e corolog.Entry) { logged = true }}
	tk := NewTask(func(ctx context.Context) (int, error) {
		panic("boom")
	})
	tk.RunLogged(log)
	<-tk.Done()
	time.Sleep(20 * time.Millisecond)
	require.True(t, logged)
}

type captureLogger struct {
	onLog func(corolog.Entry)
}

func (c *captureLogger) Log(e corolog.Entry)      { c.onLog(e) }
func (c *captureLogger) IsEnabled(corolog.Level) bool { return true }
