// Package topic は、記事のテーマとなるトピックの一覧を読み込み、ランダムに選択します。
package topic

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"strings"
)

// Fallback は、一覧が存在しない、または空のときに使われるトピックです。
const Fallback = "AIトレンド"

// List は、トピックの一覧です。
type List struct {
	Topics []string
}

// Load は、path から 1 行 1 トピックの一覧を読み込みます。
// ファイルが存在しない場合はエラーではなく、空の一覧を返します。
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &List{}, nil
		}
		return nil, fmt.Errorf("failed to open topic list %s: %w", path, err)
	}
	defer f.Close()

	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic list %s: %w", path, err)
	}
	return l, nil
}

// Parse は、r から一覧を読み込みます。空行は無視されます。
func Parse(r io.Reader) (*List, error) {
	var topics []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if t := strings.TrimSpace(sc.Text()); t != "" {
			topics = append(topics, t)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &List{Topics: topics}, nil
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Topics)
}

// Pick は、一覧から一様ランダムに 1 件選びます。一覧が空なら Fallback を返します。
func (l *List) Pick(rng *rand.Rand) string {
	if l.Len() == 0 {
		return Fallback
	}
	return l.Topics[rng.Intn(len(l.Topics))]
}

// PickN は、n 件を選びます。一覧の件数までは重複なしで選び、
// それを超える分は重複ありで選びます。
func (l *List) PickN(rng *rand.Rand, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	if l.Len() == 0 {
		for len(out) < n {
			out = append(out, Fallback)
		}
		return out
	}

	for _, i := range rng.Perm(len(l.Topics)) {
		if len(out) == n {
			break
		}
		out = append(out, l.Topics[i])
	}
	for len(out) < n {
		out = append(out, l.Pick(rng))
	}
	return out
}
