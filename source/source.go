// Package source は、記事生成の参考情報となる検索結果やニュースを取得します。
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Snippet は、検索結果 1 件分です。プロンプトの文脈としてのみ使われます。
type Snippet struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Searcher は、クエリに関連する Snippet を最大 num 件返します。
type Searcher interface {
	Search(ctx context.Context, query string, num int) ([]Snippet, error)
}

// Disabled は、常に結果なしを返す Searcher です。
type Disabled struct{}

func (Disabled) Search(context.Context, string, int) ([]Snippet, error) {
	return nil, nil
}

// Multi は、複数の Searcher の結果を連結します。
// いずれかが失敗した時点でそのエラーを返します。
type Multi []Searcher

func (m Multi) Search(ctx context.Context, query string, num int) ([]Snippet, error) {
	var out []Snippet
	for i, s := range m {
		res, err := s.Search(ctx, query, num)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		out = append(out, res...)
	}
	return out, nil
}

// WithLimit は、呼び出し側の指定に関わらず num 件で検索する Searcher を返します。
func WithLimit(s Searcher, num int) Searcher {
	return &limited{inner: s, num: num}
}

type limited struct {
	inner Searcher
	num   int
}

func (l *limited) Search(ctx context.Context, query string, _ int) ([]Snippet, error) {
	return l.inner.Search(ctx, query, l.num)
}

var (
	_ Searcher = Disabled{}
	_ Searcher = Multi(nil)
)

// Options は、New が組み立てる検索元の設定です。
type Options struct {
	SerperAPIKey   string
	SerperEndpoint string
	SerperTimeout  time.Duration

	FeedURL   string
	FeedLimit int
}

// New は、設定に応じて Serper 検索とニュースフィードを組み合わせた Searcher を返します。
// どちらも無効な場合は Disabled を返し、参考情報なしで生成します。
func New(opts Options) Searcher {
	var searchers Multi
	if opts.SerperAPIKey != "" {
		searchers = append(searchers, NewSerper(opts.SerperAPIKey, opts.SerperEndpoint, opts.SerperTimeout))
	}
	if opts.FeedURL != "" {
		searchers = append(searchers, WithLimit(NewRSS(opts.FeedURL), opts.FeedLimit))
	}

	switch len(searchers) {
	case 0:
		slog.Info("No search source configured, generating without sources")
		return Disabled{}
	case 1:
		return searchers[0]
	default:
		return searchers
	}
}
