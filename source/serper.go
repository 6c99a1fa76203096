package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sat8bit/postgen/retry"
)

const (
	DefaultSerperEndpoint = "https://google.serper.dev/search"
	DefaultSerperTimeout  = 30 * time.Second
)

// Serper は、serper.dev の Google 検索 API を使う Searcher です。
type Serper struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSerper は新しい Serper を生成します。endpoint が空の場合は公式エンドポイントを使います。
func NewSerper(apiKey, endpoint string, timeout time.Duration) *Serper {
	if endpoint == "" {
		endpoint = DefaultSerperEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultSerperTimeout
	}
	return &Serper{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []Snippet `json:"organic"`
}

func (s *Serper) Search(ctx context.Context, query string, num int) ([]Snippet, error) {
	body, err := json.Marshal(serperRequest{Q: query, Num: num})
	if err != nil {
		return nil, fmt.Errorf("source.Serper.Search: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("source.Serper.Search: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source.Serper.Search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("source.Serper.Search: %w", &retry.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(msg)),
		})
	}

	var data serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("source.Serper.Search: decode response: %w", err)
	}

	out := data.Organic
	if num > 0 && len(out) > num {
		out = out[:num]
	}
	return out, nil
}

var _ Searcher = (*Serper)(nil)
