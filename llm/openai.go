package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sat8bit/postgen/retry"
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultTemperature = 0.7
	DefaultTimeout     = 90 * time.Second
)

// OpenAIConfig は、OpenAI バックエンドの設定です。
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // 空なら公式エンドポイント
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// OpenAI は、Chat Completions API を使う Generator です。
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	system := req.System
	if system == "" {
		system = DefaultSystemPrompt
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: o.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm.OpenAI.Generate: %w", classifyOpenAIError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm.OpenAI.Generate: %w", &retry.UpstreamError{
			StatusCode: http.StatusOK,
			Message:    "response contains no choices",
		})
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError は、HTTP 429 を retry.ErrRateLimited に、
// それ以外を retry.UpstreamError に変換します。
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %s", retry.ErrRateLimited, apiErr.Message)
		}
		return &retry.UpstreamError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", retry.ErrRateLimited, reqErr.Err)
		}
		return &retry.UpstreamError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}

	return &retry.UpstreamError{Message: err.Error()}
}

var _ Generator = (*OpenAI)(nil)
