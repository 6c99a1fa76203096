package post

import (
	"fmt"
	"log/slog"
	"os"
)

// Writer は、Post を outputDir 以下に書き出します。
type Writer struct {
	outputDir string
}

func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// Write は、Post をファイルに書き出し、そのパスを返します。
func (w *Writer) Write(p *Post) (string, error) {
	path, data, err := p.Render(w.outputDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write markdown file: %w", err)
	}

	slog.Info("Markdown file generated", "path", path)
	return path, nil
}
