package post

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/sat8bit/postgen/source"
)

const noSources = "（参考リンクなし / 生成ベース）"

const promptTemplate = `テーマ: 「{{ .Topic }}」
目的: GitHub Pages用ブログ記事。読者の検索意図を満たし、初学者にも分かりやすく。

必須条件:
- 日本語、Markdown形式（# 見出し、## 小見出し、箇条書き、表を適宜）
- 冒頭に150字程度の要約（太字）
- SEOを意識した構成（結論→根拠→具体例→FAQ→まとめ）
- 具体例/手順/チェックリストを入れる
- 可能なら内部で簡単な表（メリデメ等）を1つ
- 最後に「参考リンク」節を設け、以下の候補を自然に要約しながら列挙（不要なら“参考リンク：なし”と記載）

参考リンク候補:
{{ .Sources }}
`

var prompt = template.Must(template.New("prompt").Parse(promptTemplate))

// BuildPrompt は、記事生成用のプロンプトを組み立てます。
func BuildPrompt(topic string, snippets []source.Snippet) (string, error) {
	var buf bytes.Buffer
	if err := prompt.Execute(&buf, struct {
		Topic   string
		Sources string
	}{
		Topic:   topic,
		Sources: bulletSources(snippets),
	}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

func bulletSources(snippets []source.Snippet) string {
	if len(snippets) == 0 {
		return noSources
	}
	lines := make([]string, 0, len(snippets))
	for _, s := range snippets {
		lines = append(lines, fmt.Sprintf("- %s（%s）", s.Title, s.Link))
	}
	return strings.Join(lines, "\n")
}
