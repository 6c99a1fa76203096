// Package pipeline は、トピック選択から記事の書き出しまでを順番に実行します。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sat8bit/postgen/llm"
	"github.com/sat8bit/postgen/post"
	"github.com/sat8bit/postgen/retry"
	"github.com/sat8bit/postgen/source"
	"github.com/sat8bit/postgen/topic"
)

// Pipeline は、1 件ずつ記事を生成します。並行には実行しません。
type Pipeline struct {
	generator  llm.Generator
	searcher   source.Searcher
	topics     *topic.List
	writer     *post.Writer
	system     string
	numSources int
	interval   time.Duration
	lenient    bool

	fixedTopic string
	now        func() time.Time
	rng        *rand.Rand
	sleep      retry.Sleeper
}

// Config は、Pipeline の構成要素です。
type Config struct {
	Generator  llm.Generator
	Searcher   source.Searcher // nil の場合は検索しない
	Topics     *topic.List
	Writer     *post.Writer
	System     string
	NumSources int
	Interval   time.Duration

	// IgnoreSearchErrors が true の場合、検索の失敗を警告にとどめて参考情報なしで生成する。
	// false の場合、その記事は失敗として扱われファイルは書き出されない。
	IgnoreSearchErrors bool

	// FixedTopic が空でない場合、一覧からは選ばずに常にこのトピックを使う。
	FixedTopic string
	Now        func() time.Time
	Rand       *rand.Rand
	Sleep      retry.Sleeper
}

func New(cfg Config) *Pipeline {
	p := &Pipeline{
		generator:  cfg.Generator,
		searcher:   cfg.Searcher,
		topics:     cfg.Topics,
		writer:     cfg.Writer,
		system:     cfg.System,
		numSources: cfg.NumSources,
		interval:   cfg.Interval,
		lenient:    cfg.IgnoreSearchErrors,
		fixedTopic: cfg.FixedTopic,
		now:        cfg.Now,
		rng:        cfg.Rand,
		sleep:      cfg.Sleep,
	}
	if p.searcher == nil {
		p.searcher = source.Disabled{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if p.sleep == nil {
		p.sleep = retry.SleepContext
	}
	return p
}

// Result は、1 件分の生成結果です。
type Result struct {
	Topic string
	Path  string
	Err   error
}

// Run は、n 件の記事を順番に生成します。記事の間には interval だけ待機します。
// 失敗した記事はファイルを書き出さずにスキップし、全体のエラーとしてまとめて返します。
func (p *Pipeline) Run(ctx context.Context, n int) ([]Result, error) {
	topics := p.pickTopics(n)
	results := make([]Result, 0, len(topics))
	var errs []error

	for i, t := range topics {
		if i > 0 && p.interval > 0 {
			if err := p.sleep(ctx, p.interval); err != nil {
				errs = append(errs, fmt.Errorf("run interrupted: %w", err))
				break
			}
		}

		path, err := p.Generate(ctx, t)
		results = append(results, Result{Topic: t, Path: path, Err: err})
		if err != nil {
			slog.ErrorContext(ctx, "failed to generate post", "index", i+1, "topic", t, "error", err)
			errs = append(errs, fmt.Errorf("post %d (%s): %w", i+1, t, err))
		}
	}

	return results, errors.Join(errs...)
}

func (p *Pipeline) pickTopics(n int) []string {
	if p.fixedTopic == "" {
		return p.topics.PickN(p.rng, n)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = p.fixedTopic
	}
	return out
}

// Generate は、topic について 1 件の記事を生成して書き出し、そのパスを返します。
func (p *Pipeline) Generate(ctx context.Context, t string) (string, error) {
	slog.InfoContext(ctx, "generating post", "topic", t)

	snippets, err := p.searcher.Search(ctx, t, p.numSources)
	if err != nil {
		if !p.lenient {
			return "", fmt.Errorf("search failed: %w", err)
		}
		slog.WarnContext(ctx, "search failed, continuing without sources", "topic", t, "error", err)
		snippets = nil
	}

	prompt, err := post.BuildPrompt(t, snippets)
	if err != nil {
		return "", err
	}

	body, err := p.generator.Generate(ctx, llm.Request{System: p.system, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	return p.writer.Write(post.New(t, p.now(), body))
}
