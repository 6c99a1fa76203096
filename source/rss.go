package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"
)

// DefaultNewsFeedURL は Google ニュースの検索フィードです。%s にはエスケープ済みのクエリが入ります。
const DefaultNewsFeedURL = "https://news.google.com/rss/search?q=%s&hl=ja&gl=JP&ceid=JP:ja"

const maxSummaryRunes = 200

// RSS は、RSS/Atom フィードから最新の記事を取得する Searcher です。
type RSS struct {
	urlTemplate string
	parser      *gofeed.Parser
}

// NewRSS は新しい RSS を生成します。
// urlTemplate に %s が含まれる場合、クエリを埋め込んだ URL を取得します。
func NewRSS(urlTemplate string) *RSS {
	return &RSS{
		urlTemplate: urlTemplate,
		parser:      gofeed.NewParser(),
	}
}

func (r *RSS) feedURL(query string) string {
	if !strings.Contains(r.urlTemplate, "%s") {
		return r.urlTemplate
	}
	return fmt.Sprintf(r.urlTemplate, url.QueryEscape(query))
}

// Search はフィードを取得し、公開日の新しい順に num 件を返します。num が 0 以下の場合は無制限。
func (r *RSS) Search(ctx context.Context, query string, num int) ([]Snippet, error) {
	u := r.feedURL(query)
	feed, err := r.parser.ParseURLWithContext(u, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed from %s: %w", u, err)
	}

	items := feed.Items
	sort.SliceStable(items, func(i, j int) bool {
		iTime := items[i].PublishedParsed
		jTime := items[j].PublishedParsed
		// 日付のない記事は末尾
		switch {
		case iTime == nil:
			return false
		case jTime == nil:
			return true
		default:
			return iTime.After(*jTime)
		}
	})

	var out []Snippet
	for i, item := range items {
		if num > 0 && i >= num {
			break
		}
		out = append(out, Snippet{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: truncateRunes(strings.TrimSpace(stripHTML(item.Description)), maxSummaryRunes),
		})
	}
	return out, nil
}

var htmlRegex = regexp.MustCompile("<[^>]*>")

func stripHTML(s string) string {
	return htmlRegex.ReplaceAllString(s, "")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

var _ Searcher = (*RSS)(nil)
