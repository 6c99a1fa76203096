package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{MaxRetries: 5, InitialDelay: 30 * time.Second}

	assert.Equal(t, 30*time.Second, p.Delay(0))
	assert.Equal(t, 60*time.Second, p.Delay(1))
	assert.Equal(t, 120*time.Second, p.Delay(2))
	assert.Equal(t, 240*time.Second, p.Delay(3))
}

func TestCaller_SuccessFirstAttempt(t *testing.T) {
	s := &recordingSleeper{}
	c := NewCaller(DefaultPolicy(), WithSleeper(s.sleep))

	calls := 0
	got, err := c.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "  # 猫\n本文...\n\n", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "# 猫\n本文...", got)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.delays)
}

func TestCaller_SuccessAfterRateLimits(t *testing.T) {
	for limited := 0; limited < DefaultMaxRetries; limited++ {
		t.Run(fmt.Sprintf("limited_%d", limited), func(t *testing.T) {
			s := &recordingSleeper{}
			c := NewCaller(Policy{MaxRetries: DefaultMaxRetries, InitialDelay: 30 * time.Second}, WithSleeper(s.sleep))

			calls := 0
			got, err := c.Do(context.Background(), func(context.Context) (string, error) {
				calls++
				if calls <= limited {
					return "", fmt.Errorf("openai: %w", ErrRateLimited)
				}
				return "ok", nil
			})

			require.NoError(t, err)
			assert.Equal(t, "ok", got)
			assert.Equal(t, limited+1, calls)
			require.Len(t, s.delays, limited)
			for i, d := range s.delays {
				assert.Equal(t, c.Policy().Delay(i), d)
			}
		})
	}
}

func TestCaller_UpstreamErrorIsFatal(t *testing.T) {
	s := &recordingSleeper{}
	c := NewCaller(DefaultPolicy(), WithSleeper(s.sleep))

	calls := 0
	_, err := c.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", &UpstreamError{StatusCode: 500, Message: "internal"}
	})

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, 500, upErr.StatusCode)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.delays)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
}

func TestCaller_RetriesExhausted(t *testing.T) {
	s := &recordingSleeper{}
	c := NewCaller(Policy{MaxRetries: 3, InitialDelay: time.Second}, WithSleeper(s.sleep))

	calls := 0
	_, err := c.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", ErrRateLimited
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.delays)
}

func TestCaller_SleepCancelled(t *testing.T) {
	c := NewCaller(Policy{MaxRetries: 3, InitialDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := c.Do(ctx, func(context.Context) (string, error) {
		calls++
		cancel()
		return "", ErrRateLimited
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCaller_Transitions(t *testing.T) {
	var got []Transition
	c := NewCaller(
		Policy{MaxRetries: 2, InitialDelay: time.Millisecond},
		WithSleeper(func(context.Context, time.Duration) error { return nil }),
		WithObserver(func(tr Transition) { got = append(got, tr) }),
	)

	calls := 0
	_, err := c.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", ErrRateLimited
		}
		return "done", nil
	})
	require.NoError(t, err)

	want := [][2]State{
		{StateIdle, StateAttempting},
		{StateAttempting, StateBackoff},
		{StateBackoff, StateAttempting},
		{StateAttempting, StateSuccess},
	}
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w[0], got[i].From, "transition %d", i)
		assert.Equal(t, w[1], got[i].To, "transition %d", i)
	}
	assert.True(t, got[len(got)-1].To.Terminal())
	assert.Equal(t, time.Millisecond, got[1].Delay)
}

func TestCaller_FailedTransitionOnExhaustion(t *testing.T) {
	var last Transition
	c := NewCaller(
		Policy{MaxRetries: 1, InitialDelay: time.Second},
		WithObserver(func(tr Transition) { last = tr }),
	)

	_, err := c.Do(context.Background(), func(context.Context) (string, error) {
		return "", ErrRateLimited
	})

	require.Error(t, err)
	assert.Equal(t, StateAttempting, last.From)
	assert.Equal(t, StateFailed, last.To)
	assert.True(t, errors.Is(last.Err, ErrRetriesExhausted))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), 0))
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}

func TestPolicy_DelayCapped(t *testing.T) {
	p := Policy{MaxRetries: 10, InitialDelay: 30 * time.Second, MaxDelay: 5 * time.Minute}

	assert.Equal(t, 4*time.Minute, p.Delay(3))
	assert.Equal(t, 5*time.Minute, p.Delay(4))
	assert.Equal(t, 5*time.Minute, p.Delay(63))
	assert.Equal(t, 5*time.Minute, p.Delay(100))
}

func TestCaller_LargeRetryBudgetKeepsPositiveDelays(t *testing.T) {
	s := &recordingSleeper{}
	c := NewCaller(Policy{MaxRetries: 40, InitialDelay: 30 * time.Second}, WithSleeper(s.sleep))
	assert.Equal(t, MaxRetriesLimit, c.Policy().MaxRetries)
	assert.Equal(t, DefaultMaxDelay, c.Policy().MaxDelay)

	calls := 0
	_, err := c.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", ErrRateLimited
	})

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, MaxRetriesLimit, calls)
	require.Len(t, s.delays, MaxRetriesLimit-1)
	prev := time.Duration(0)
	for i, d := range s.delays {
		assert.Positive(t, d, "delay %d", i)
		assert.LessOrEqual(t, d, DefaultMaxDelay, "delay %d", i)
		assert.GreaterOrEqual(t, d, prev, "delay %d", i)
		prev = d
	}
	assert.Equal(t, DefaultMaxDelay, s.delays[len(s.delays)-1])
}
