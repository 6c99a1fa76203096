package llm

import (
	"context"
)

// Generator は、プロンプトから記事本文を生成します。
// 実装は 1 回だけリクエストを行い、レート制限は retry.ErrRateLimited として返します。
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request は、生成リクエストです。
type Request struct {
	System string
	Prompt string
}

// DefaultSystemPrompt は、編集者としての振る舞いを指示するシステムプロンプトです。
const DefaultSystemPrompt = "あなたは日本語のSEOに詳しい編集者です。"
