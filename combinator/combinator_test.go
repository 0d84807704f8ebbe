package combinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sleepAwaitable(d time.Duration) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func TestWaitAll_HeterogeneousTuple(t *testing.T) {
	results, err := WaitAll(context.Background(),
		func(ctx context.Context) (any, error) { return 1, nil },
		func(ctx context.Context) (any, error) { return "abc", nil },
		func(ctx context.Context) (any, error) { return 1.5, nil },
	)
	require.NoError(t, err)
	require.Equal(t, []any{1, "abc", 1.5}, results)
}

func TestWaitAll_SurfacesFirstError(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := WaitAll(context.Background(),
		func(ctx context.Context) (any, error) { return nil, sentinel },
		sleepAwaitable(50*time.Millisecond),
	)
	require.ErrorIs(t, err, sentinel)
}

func TestWaitAny_ResolvesWithFasterWinner(t *testing.T) {
	start := time.Now()
	idx, _, err := WaitAny(context.Background(),
		sleepAwaitable(50*time.Millisecond),
		sleepAwaitable(200*time.Millisecond),
	)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestWaitAny_CancelsLoser(t *testing.T) {
	loserObservedCancel := make(chan bool, 1)
	_, _, err := WaitAny(context.Background(),
		func(ctx context.Context) (any, error) { return nil, nil },
		func(ctx context.Context) (any, error) {
			<-ctx.Done()
			loserObservedCancel <- true
			return nil, ctx.Err()
		},
	)
	require.NoError(t, err)
	select {
	case <-loserObservedCancel:
	case <-time.After(time.Second):
		t.Fatal("loser never observed cancellation")
	}
}

func TestWaitAll2_Typed(t *testing.T) {
	a, b, err := WaitAll2(context.Background(),
		func(ctx context.Context) (int, error) { return 7, nil },
		func(ctx context.Context) (string, error) { return "seven", nil },
	)
	require.NoError(t, err)
	require.Equal(t, 7, a)
	require.Equal(t, "seven", b)
}

func TestWaitAnySlice_Homogeneous(t *testing.T) {
	idx, v, err := WaitAnySlice(context.Background(),
		func(ctx context.Context) (int, error) {
			time.Sleep(10 * time.Millisecond)
			return 42, nil
		},
		func(ctx context.Context) (int, error) {
			time.Sleep(100 * time.Millisecond)
			return 99, nil
		},
	)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Equal(t, 42, v)
}
