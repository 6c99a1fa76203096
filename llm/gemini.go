package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/sat8bit/postgen/retry"
)

const DefaultGeminiModel = "gemini-2.5-flash-lite"

// GeminiConfig は、Gemini バックエンドの設定です。
// BaseURL が空の場合は公式エンドポイントを使います。
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("llm.NewGemini: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Gemini{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	system := req.System
	if system == "" {
		system = DefaultSystemPrompt
	}

	temp := g.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
		SystemInstruction: &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: system}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("llm.Gemini.Generate: %w", classifyGeminiError(err))
	}

	txt := extractText(resp)
	if txt == "" {
		return "", fmt.Errorf("llm.Gemini.Generate: %w", &retry.UpstreamError{
			StatusCode: http.StatusOK,
			Message:    "response contains no text",
		})
	}
	return txt, nil
}

func classifyGeminiError(err error) error {
	code, msg, ok := geminiStatus(err)
	if !ok {
		return &retry.UpstreamError{Message: err.Error()}
	}
	if code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", retry.ErrRateLimited, msg)
	}
	return &retry.UpstreamError{StatusCode: code, Message: msg}
}

func geminiStatus(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}

func extractText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 {
		return ""
	}
	for _, c := range res.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

var _ Generator = (*Gemini)(nil)
