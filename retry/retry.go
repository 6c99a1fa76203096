// Package retry は、レート制限を吸収しながら外部 API を呼び出すための
// 小さな状態機械を提供します。
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultMaxRetries   = 5
	DefaultInitialDelay = 30 * time.Second
	DefaultMaxDelay     = 30 * time.Minute

	// MaxRetriesLimit は、MaxRetries に指定できる上限です。
	MaxRetriesLimit = 20
)

var (
	// ErrRateLimited は、呼び出し先がレート制限を返したことを示します。
	// Attempt はこのエラーをラップして返すことで再試行を要求します。
	ErrRateLimited = errors.New("rate limited")

	// ErrRetriesExhausted は、再試行回数を使い切ったことを示します。
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// UpstreamError は、レート制限以外の失敗レスポンスです。再試行されません。
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream error: %s", e.Message)
	}
	return fmt.Sprintf("upstream error: HTTP %d: %s", e.StatusCode, e.Message)
}

// State は、Caller の状態です。
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateBackoff
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal は、これ以上遷移しない状態かどうかを返します。
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

// Attempt は、1 回分のリクエストを行い、テキストを返します。
type Attempt func(ctx context.Context) (string, error)

// Sleeper は、バックオフ中の待機を行います。
type Sleeper func(ctx context.Context, d time.Duration) error

// Transition は、状態遷移の通知です。
type Transition struct {
	From    State
	To      State
	Attempt int
	Delay   time.Duration
	Err     error
}

// Policy は、再試行の設定です。
// 遅延は指数的に増加し、k 回目(0 始まり)の再試行前に min(InitialDelay*2^k, MaxDelay) 待機します。
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultPolicy は、既定の Policy を返します。
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
	}
}

// normalize は、範囲外の値を既定値や上限に丸めた Policy を返します。
func (p Policy) normalize() Policy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.MaxRetries > MaxRetriesLimit {
		p.MaxRetries = MaxRetriesLimit
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	return p
}

// newBackOff は、ジッターなしで倍々に増える遅延のスケジュールを返します。
func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	p = p.normalize()
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialDelay
	bo.MaxInterval = p.MaxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()
	return bo
}

// Delay は、attempt 回目(0 始まり)の失敗後に待機する時間を返します。
func (p Policy) Delay(attempt int) time.Duration {
	bo := p.newBackOff()
	d := bo.NextBackOff()
	for i := 0; i < attempt; i++ {
		d = bo.NextBackOff()
	}
	return d
}

// Caller は、Policy に従って Attempt を実行します。
type Caller struct {
	policy  Policy
	sleep   Sleeper
	observe func(Transition)
}

// Option は、Caller の設定を変更します。
type Option func(*Caller)

// WithSleeper は、待機処理を差し替えます。テストで実時間の待機を避けるために使います。
func WithSleeper(s Sleeper) Option {
	return func(c *Caller) {
		c.sleep = s
	}
}

// WithObserver は、状態遷移ごとに呼ばれる関数を設定します。
func WithObserver(fn func(Transition)) Option {
	return func(c *Caller) {
		c.observe = fn
	}
}

// NewCaller は、新しい Caller を生成します。
func NewCaller(policy Policy, opts ...Option) *Caller {
	c := &Caller{
		policy: policy.normalize(),
		sleep:  SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy は、Caller の設定を返します。
func (c *Caller) Policy() Policy {
	return c.policy
}

// Do は、Attempt を成功するか失敗が確定するまで実行します。
// ErrRateLimited 以外のエラーは即座に返されます。
func (c *Caller) Do(ctx context.Context, attempt Attempt) (string, error) {
	state := StateIdle
	bo := c.policy.newBackOff()
	var lastErr error

	for n := 0; ; n++ {
		c.transition(&state, StateAttempting, n, 0, nil)

		text, err := attempt(ctx)
		if err == nil {
			c.transition(&state, StateSuccess, n, 0, nil)
			if n > 0 {
				slog.InfoContext(ctx, "call succeeded after retry", "attempts", n+1)
			}
			return strings.TrimSpace(text), nil
		}

		if !errors.Is(err, ErrRateLimited) {
			c.transition(&state, StateFailed, n, 0, err)
			return "", err
		}
		lastErr = err

		if n+1 >= c.policy.MaxRetries {
			break
		}

		delay := bo.NextBackOff()
		c.transition(&state, StateBackoff, n, delay, err)
		slog.WarnContext(ctx, "rate limited, backing off",
			"attempt", n+1,
			"max_retries", c.policy.MaxRetries,
			"delay", delay,
		)
		if err := c.sleep(ctx, delay); err != nil {
			c.transition(&state, StateFailed, n, 0, err)
			return "", fmt.Errorf("retry aborted: %w", err)
		}
	}

	err := fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.policy.MaxRetries, lastErr)
	c.transition(&state, StateFailed, c.policy.MaxRetries-1, 0, err)
	return "", err
}

func (c *Caller) transition(state *State, to State, attempt int, delay time.Duration, err error) {
	from := *state
	*state = to
	if c.observe != nil {
		c.observe(Transition{From: from, To: to, Attempt: attempt, Delay: delay, Err: err})
	}
}

// SleepContext は、d だけ待機します。ctx がキャンセルされた場合はその時点で戻ります。
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
