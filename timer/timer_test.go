package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kestrelio/coro/corolog"
	"github.com/kestrelio/coro/poller"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, poller.Poller) {
	t.Helper()
	p := poller.NewSelect()
	svc, err := New(p, corolog.NoOp{})
	require.NoError(t, err)
	stop := make(chan struct{})
	go func() {
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
		svc.Close()
		p.Close()
	})
	return svc, p
}

func TestService_SleepForFires(t *testing.T) {
	svc, _ := newTestService(t)
	start := time.Now()
	err := svc.SleepFor(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestService_Fairness(t *testing.T) {
	svc, _ := newTestService(t)
	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(3)
	for i, ms := range []int{10, 20, 30} {
		i, ms := i, ms
		go func() {
			defer wg.Done()
			require.NoError(t, svc.SleepFor(context.Background(), time.Duration(ms)*time.Millisecond))
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestService_CancelViaContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.SleepFor(ctx, time.Second)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sleep never observed cancellation")
	}
}

func TestService_CancelSkipsWakeup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx20, cancel20 := context.WithCancel(context.Background())

	var fired20 bool
	done10 := make(chan struct{})
	done30 := make(chan struct{})

	go func() {
		svc.SleepFor(context.Background(), 10*time.Millisecond)
		close(done10)
	}()
	go func() {
		err := svc.SleepFor(ctx20, 20*time.Millisecond)
		if err == nil {
			fired20 = true
		}
	}()
	go func() {
		svc.SleepFor(context.Background(), 30*time.Millisecond)
		close(done30)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel20()

	<-done10
	<-done30
	require.False(t, fired20)
}
