package llm

import (
	"context"

	"github.com/sat8bit/postgen/retry"
)

// Resilient は、Generator の呼び出しを retry.Caller で包みます。
type Resilient struct {
	inner  Generator
	caller *retry.Caller
}

// NewResilient は、新しい Resilient を生成します。
func NewResilient(inner Generator, caller *retry.Caller) *Resilient {
	return &Resilient{
		inner:  inner,
		caller: caller,
	}
}

func (r *Resilient) Generate(ctx context.Context, req Request) (string, error) {
	return r.caller.Do(ctx, func(ctx context.Context) (string, error) {
		return r.inner.Generate(ctx, req)
	})
}

var _ Generator = (*Resilient)(nil)
