// Package post は、生成された記事の整形と書き出しを扱います。
// ネットワークには依存しません。
package post

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLayout = "post"
	fallbackSlug  = "post"

	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05 -0700"
)

// Post は、書き出し前の記事です。
type Post struct {
	Topic  string
	Title  string
	Layout string
	Date   time.Time
	Tags   []string
	Body   string
}

// New は、トピックと生成日時、本文から Post を組み立てます。
func New(topic string, now time.Time, body string) *Post {
	return &Post{
		Topic:  topic,
		Title:  fmt.Sprintf("%sの最新ガイド（%s）", topic, now.Format(dateLayout)),
		Layout: DefaultLayout,
		Date:   now,
		Tags:   []string{topic},
		Body:   body,
	}
}

// Slug は、ファイル名に使うスラッグです。
func (p *Post) Slug() string {
	if s := Slugify(p.Topic); s != "" {
		return s
	}
	return fallbackSlug
}

// FileName は "{日付}-{スラッグ}.md" を返します。
func (p *Post) FileName() string {
	return fmt.Sprintf("%s-%s.md", p.Date.Format(dateLayout), p.Slug())
}

type frontMatter struct {
	Layout string   `yaml:"layout"`
	Title  string   `yaml:"title"`
	Date   string   `yaml:"date"`
	Tags   []string `yaml:"tags,flow"`
}

// FrontMatter は、"---" で囲まれた Jekyll 用のフロントマターを返します。
func (p *Post) FrontMatter() (string, error) {
	data, err := yaml.Marshal(frontMatter{
		Layout: p.Layout,
		Title:  p.Title,
		Date:   p.Date.Format(timestampLayout),
		Tags:   p.Tags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal front matter: %w", err)
	}
	return "---\n" + string(data) + "---\n", nil
}

// Render は、出力先のパスとファイルの内容を返します。
// 内容はフロントマター、空行、本文の順で、末尾に改行が付きます。
func (p *Post) Render(dir string) (string, []byte, error) {
	front, err := p.FrontMatter()
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(front)
	buf.WriteString("\n")
	buf.WriteString(p.Body)
	buf.WriteString("\n")

	return filepath.Join(dir, p.FileName()), buf.Bytes(), nil
}
