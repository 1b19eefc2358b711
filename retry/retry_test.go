package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoValueRecovers(t *testing.T) {
	calls := 0
	out, err := DoValue(context.Background(), 3, Constant(0), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, out)
	require.Equal(t, 3, calls)
}

func TestDoValueExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoValue(context.Background(), 3, Constant(0), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("still down")
	})
	require.EqualError(t, err, "still down")
	require.Equal(t, 3, calls)
}

func TestDoValuePermanentAborts(t *testing.T) {
	calls := 0
	sentinel := errors.New("definitive")
	_, err := DoValue(context.Background(), 5, Constant(0), func(context.Context) (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestDoValueContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := DoValue(ctx, 3, Constant(time.Hour), func(context.Context) (int, error) {
		return 0, errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExponentialBackoff(t *testing.T) {
	b := Exponential(time.Second)
	require.Equal(t, time.Second, b(0))
	require.Equal(t, 2*time.Second, b(1))
	require.Equal(t, 4*time.Second, b(2))
}

func TestPollTerminal(t *testing.T) {
	calls := 0
	out, done, err := Poll(context.Background(), 5, 0, func(context.Context) (string, bool, error) {
		calls++
		if calls == 3 {
			return "confirmed", true, nil
		}
		return "", false, nil
	})
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, "confirmed", out)
	require.Equal(t, 3, calls)
}

func TestPollReturnsPromptlyOnExhaustion(t *testing.T) {
	start := time.Now()
	_, done, err := Poll(context.Background(), 2, 200*time.Millisecond, func(context.Context) (int, bool, error) {
		return 0, false, nil
	})
	require.NoError(t, err)
	require.False(t, done)
	// One sleep between the two attempts, none after the last.
	require.Less(t, time.Since(start), 350*time.Millisecond)
}

func TestPollExhausted(t *testing.T) {
	calls := 0
	_, done, err := Poll(context.Background(), 4, 0, func(context.Context) (string, bool, error) {
		calls++
		// Errors from the probe are not terminal.
		return "", false, errors.New("rpc hiccup")
	})
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, 4, calls)
}
